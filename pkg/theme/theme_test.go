package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/comp"
	"github.com/weftui/weft/pkg/draw"
)

const doc = `
name: dusk
colors:
  primary: "#4f9cf5"
  accent: "#f90"
  overlay: "#00000080"
spacing:
  small: 2
  huge: 32
pools:
  per_type: 5
`

func TestParseOverlaysDefaults(t *testing.T) {
	th, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "dusk", th.Name)

	require.Equal(t, draw.Solid(draw.RGB(0xff, 0x99, 0x00)), th.Brush("accent"))
	require.Equal(t, draw.Brush{Color: draw.Color{A: 0x80}}, th.Brush("overlay"))

	// Overridden and inherited spacing.
	require.Equal(t, 2.0, th.Space("small"))
	require.Equal(t, 32.0, th.Space("huge"))
	require.Equal(t, 8.0, th.Space("medium"))

	// Partial pool limits keep the default for the rest.
	require.Equal(t, PoolLimits{PerType: 5, Untyped: 10}, th.Pools())
}

func TestParseRejectsBadColor(t *testing.T) {
	_, err := Parse([]byte("colors: {bad: \"f90\"}"))
	require.ErrorContains(t, err, "does not start with #")

	_, err = Parse([]byte("colors: {bad: \"#f9\"}"))
	require.ErrorContains(t, err, "hex digits")

	_, err = Parse([]byte("spacing: {bad: -1}"))
	require.ErrorContains(t, err, "negative")
}

func TestUnknownBrushFallsBack(t *testing.T) {
	th := Default()
	require.Equal(t, th.Brush("text"), th.Brush("no-such-brush"))
}

func TestUseLoadsOncePerComposition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tree := applier.NewTree("root")
	queue := &applier.Queue{}
	c := comp.New(tree, queue)
	t.Cleanup(c.Close)

	var first, second *Theme
	body := func(c *comp.Composer) { first = Use(c, path) }
	c.ComposeRoot(body)
	require.Equal(t, "dusk", first.Name)

	// A later pass reuses the remembered instance even if the file is gone.
	require.NoError(t, os.Remove(path))
	c.ComposeRoot(func(c *comp.Composer) { second = Use(c, path) })
	require.Same(t, first, second)
}

func TestUseFallsBackOnMissingFile(t *testing.T) {
	tree := applier.NewTree("root")
	queue := &applier.Queue{}
	c := comp.New(tree, queue)
	t.Cleanup(c.Close)

	var th *Theme
	c.ComposeRoot(func(c *comp.Composer) { th = Use(c, "/no/such/theme.yaml") })
	require.Equal(t, "default", th.Name)
}
