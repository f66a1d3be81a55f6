// Package theme loads named brushes, spacing scales and subcompose pool
// limits from YAML documents.
package theme

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/weftui/weft/pkg/comp"
	"github.com/weftui/weft/pkg/draw"
	"github.com/weftui/weft/pkg/logutil"
)

var logger = logutil.GetLogger("[theme] ")

// PoolLimits configures subcompose recycle pool sizes.
type PoolLimits struct {
	PerType int `yaml:"per_type"`
	Untyped int `yaml:"untyped"`
}

// Theme is a parsed theme document.
type Theme struct {
	Name    string
	brushes map[string]draw.Brush
	spacing map[string]float64
	pools   PoolLimits
}

type themeDoc struct {
	Name    string             `yaml:"name"`
	Colors  map[string]string  `yaml:"colors"`
	Spacing map[string]float64 `yaml:"spacing"`
	Pools   PoolLimits         `yaml:"pools"`
}

// Default returns the built-in theme.
func Default() *Theme {
	return &Theme{
		Name: "default",
		brushes: map[string]draw.Brush{
			"background": draw.Solid(draw.RGB(0x1e, 0x1e, 0x1e)),
			"surface":    draw.Solid(draw.RGB(0x2d, 0x2d, 0x2d)),
			"primary":    draw.Solid(draw.RGB(0x4f, 0x9c, 0xf5)),
			"text":       draw.Solid(draw.RGB(0xe0, 0xe0, 0xe0)),
		},
		spacing: map[string]float64{
			"small":  4,
			"medium": 8,
			"large":  16,
		},
		pools: PoolLimits{PerType: 7, Untyped: 10},
	}
}

// Parse parses a YAML theme document. Missing sections fall back to the
// default theme's values.
func Parse(data []byte) (*Theme, error) {
	var doc themeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse theme")
	}
	th := Default()
	if doc.Name != "" {
		th.Name = doc.Name
	}
	for name, hex := range doc.Colors {
		c, err := parseColor(hex)
		if err != nil {
			return nil, errors.Wrapf(err, "color %q", name)
		}
		th.brushes[name] = draw.Solid(c)
	}
	for name, d := range doc.Spacing {
		if d < 0 {
			return nil, fmt.Errorf("spacing %q is negative", name)
		}
		th.spacing[name] = d
	}
	if doc.Pools.PerType > 0 {
		th.pools.PerType = doc.Pools.PerType
	}
	if doc.Pools.Untyped > 0 {
		th.pools.Untyped = doc.Pools.Untyped
	}
	return th, nil
}

// LoadFile parses the theme document at path.
func LoadFile(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read theme")
	}
	return Parse(data)
}

// Brush returns the named brush, or the default theme's text brush for
// unknown names.
func (t *Theme) Brush(name string) draw.Brush {
	if b, ok := t.brushes[name]; ok {
		return b
	}
	logger.Println("unknown brush", name)
	return Default().brushes["text"]
}

// Space returns the named spacing value, or 0 for unknown names.
func (t *Theme) Space(name string) float64 { return t.spacing[name] }

// Pools returns the subcompose pool limits.
func (t *Theme) Pools() PoolLimits { return t.pools }

// Use loads the theme at path once per composition, falling back to the
// default theme on error.
func Use(c *comp.Composer, path string) *Theme {
	return comp.Remember(c, func() *Theme {
		th, err := LoadFile(path)
		if err != nil {
			logger.Println("falling back to default theme:", err)
			return Default()
		}
		return th
	})
}

// parseColor parses "#rgb", "#rrggbb" or "#rrggbbaa".
func parseColor(s string) (draw.Color, error) {
	if len(s) == 0 || s[0] != '#' {
		return draw.Color{}, fmt.Errorf("color %q does not start with #", s)
	}
	hex := s[1:]
	switch len(hex) {
	case 3:
		var b []byte
		for i := 0; i < 3; i++ {
			b = append(b, hex[i], hex[i])
		}
		hex = string(b)
		fallthrough
	case 6:
		hex += "ff"
		fallthrough
	case 8:
		v, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return draw.Color{}, fmt.Errorf("bad hex color %q", s)
		}
		return draw.Color{
			R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v),
		}, nil
	}
	return draw.Color{}, fmt.Errorf("color %q has %d hex digits, want 3, 6 or 8", s, len(hex))
}
