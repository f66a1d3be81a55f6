// Weftdemo runs a small weft UI against a line-based terminal renderer: a
// counter row above a virtualized list. It reads commands from stdin
// ("+", "-", "j", "k", "q") and exits on EOF.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/comp"
	"github.com/weftui/weft/pkg/run"
	"github.com/weftui/weft/pkg/saved"
	"github.com/weftui/weft/pkg/snapshot"
	"github.com/weftui/weft/pkg/subcompose"
	"github.com/weftui/weft/pkg/theme"
)

var (
	themePath = flag.String("theme", "", "path to a YAML theme document")
	statePath = flag.String("state", "", "path to the saved-state database")
	items     = flag.Int("items", 1000, "number of rows in the list")
	viewport  = flag.Int("viewport", 10, "visible rows")
)

func main() {
	flag.Parse()
	log := newLogger()
	defer log.Sync()

	a, err := newApp(log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		os.Exit(2)
	}
	defer a.close()
	if err := a.run(); err != nil {
		log.Error("frame loop failed", zap.Error(err))
		os.Exit(2)
	}
}

func newLogger() *zap.Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}

type app struct {
	log    *zap.Logger
	tree   *applier.Tree
	ext    *applier.Tree
	queue  *applier.Queue
	mirror *applier.Mirror
	c      *comp.Composer
	lp     *run.Loop
	host   *subcompose.Host
	store  *saved.Store
	th     *theme.Theme

	counter *snapshot.Value[int]
	first   *snapshot.Value[int]

	counterNode applier.NodeID
	listNode    applier.NodeID
}

func newApp(log *zap.Logger) (*app, error) {
	a := &app{
		log:   log,
		tree:  applier.NewTree("root"),
		ext:   applier.NewTree("root"),
		queue: &applier.Queue{},
	}
	a.mirror = &applier.Mirror{Src: a.tree, Dst: a.ext}
	a.c = comp.New(a.tree, a.queue)

	if *statePath != "" {
		store, err := saved.Open(*statePath)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	a.c.ComposeRoot(a.compose)
	a.queue.Flush(a.mirror)

	a.host = subcompose.NewHost(a.tree, a.queue, a.listNode)
	a.host.MaxPerType = a.th.Pools().PerType
	a.host.MaxUntyped = a.th.Pools().Untyped

	a.lp = run.New(run.Spec{
		Composer: a.c,
		Queue:    a.queue,
		Applier:  a.mirror,
		Render:   a.render,
	})
	a.host.OnInvalidate = a.lp.ScheduleFrame
	return a, nil
}

func (a *app) close() {
	a.c.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing state store", zap.Error(err))
		}
	}
}

// compose builds the static shell: the counter row and the list container
// the subcompose host fills at render time.
func (a *app) compose(c *comp.Composer) {
	a.th = theme.Use(c, *themePath)
	if a.store != nil {
		a.counter = saved.State(c, a.store, "counter", 0)
	} else {
		a.counter = comp.State(c, 0)
	}
	a.first = comp.State(c, 0)

	c.Node("column", func(c *comp.Composer) {
		c.Skippable(comp.Here(), nil, func(c *comp.Composer) {
			a.counterNode = c.Node("text", nil)
			c.SetAttr(a.counterNode, "text", fmt.Sprintf("count: %d", a.counter.Get()))
		})
		a.listNode = c.Node("list", nil)
	})
}

func (a *app) run() error {
	go a.readInput()
	a.lp.ScheduleFrame()
	return a.lp.Run()
}

// readInput turns stdin lines into UI tasks until EOF.
func (a *app) readInput() {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "+":
			a.lp.PostUI(func() { a.counter.Set(a.counter.Get() + 1) })
		case "-":
			a.lp.PostUI(func() { a.counter.Set(a.counter.Get() - 1) })
		case "j":
			a.lp.PostUI(func() { a.scroll(1) })
		case "k":
			a.lp.PostUI(func() { a.scroll(-1) })
		case "q":
			a.lp.Return(nil)
			return
		}
	}
	if err := sc.Err(); err != nil {
		a.log.Warn("reading stdin", zap.Error(err))
	}
	a.lp.Return(nil)
}

func (a *app) scroll(by int) {
	f := a.first.Get() + by
	if max := *items - *viewport; f > max {
		f = max
	}
	if f < 0 {
		f = 0
	}
	a.first.Set(f)
}

// render subcomposes the visible window and prints the tree as lines.
func (a *app) render() {
	a.host.BeginPass()
	f := a.first.Get()
	for i := f; i < f+*viewport && i < *items; i++ {
		i := i
		a.host.Subcompose(subcompose.IndexKey(i), rowType(i), func(c *comp.Composer) {
			id := c.Node("text", nil)
			c.SetAttr(id, "text", rowLabel(i))
		})
	}
	a.host.FinishPass()
	a.queue.Flush(a.mirror)
	a.print()
}

// Alternating content types exercise the typed recycle pools.
func rowType(i int) subcompose.ContentType {
	return subcompose.ContentType(1 + i%2)
}

func rowLabel(i int) string {
	if i%2 == 0 {
		return fmt.Sprintf("item %4d", i)
	}
	return fmt.Sprintf("ITEM %4d", i)
}

// print walks the external tree and writes one line per text node.
func (a *app) print() {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprint(out, "\x1b[2J\x1b[H")
	}
	indent := strings.Repeat(" ", int(a.th.Space("small")))
	a.ext.Walk(a.ext.Root(), func(n *applier.Node) bool {
		if text, ok := n.Attrs["text"]; ok {
			prefix := ""
			if n.Parent != 0 && a.ext.Get(n.Parent).Kind == "slot" {
				prefix = indent
			}
			fmt.Fprintf(out, "%s%v\n", prefix, text)
		}
		return true
	})
}
