package tree

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Format is a Graphviz output format.
type Format = graphviz.Format

const (
	DOT = graphviz.XDOT
	SVG = graphviz.SVG
	PNG = graphviz.PNG
)

// ParseFormat maps a file extension ("dot", "svg", "png") to a Format.
func ParseFormat(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "dot", "gv":
		return DOT, nil
	case "svg":
		return SVG, nil
	case "png":
		return PNG, nil
	default:
		return "", errors.NewValidationError("format", "must be one of dot, svg, png", ext)
	}
}

// ExportGraphviz renders the tree rooted at root to w. featureNames labels
// the columns; missing names fall back to "column N".
func ExportGraphviz(w io.Writer, root Node, featureNames []string, format Format) error {
	g, graph, err := draw(root, featureNames)
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = g.Close()
	}()
	return errors.Wrap(g.Render(graph, format, w), "render tree")
}

// ExportGraphvizFile renders the tree to path.
func ExportGraphvizFile(path string, root Node, featureNames []string, format Format) error {
	g, graph, err := draw(root, featureNames)
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = g.Close()
	}()
	return errors.Wrapf(g.RenderFilename(graph, format, path), "render tree to %s", path)
}

func draw(root Node, featureNames []string) (*graphviz.Graphviz, *cgraph.Graph, error) {
	if root == nil {
		return nil, nil, errors.NewNotFittedError("tree", "ExportGraphviz")
	}
	g := graphviz.New()
	graph, err := g.Graph()
	if err != nil {
		return nil, nil, errors.Wrap(err, "create graph")
	}
	counter := 0
	if err := drawNode(graph, root, nil, "", featureNames, &counter); err != nil {
		_ = graph.Close()
		_ = g.Close()
		return nil, nil, err
	}
	return g, graph, nil
}

func drawNode(graph *cgraph.Graph, node Node, parent *cgraph.Node, edge string, names []string, counter *int) error {
	current, err := graph.CreateNode(fmt.Sprintf("n%d", *counter))
	if err != nil {
		return errors.Wrap(err, "create node")
	}
	*counter++

	if parent != nil {
		e, err := graph.CreateEdge("", parent, current)
		if err != nil {
			return errors.Wrap(err, "create edge")
		}
		e.SetLabel(edge)
	}

	switch n := node.(type) {
	case *Split:
		current.SetLabel(splitLabel(n, names))
		if err := drawNode(graph, n.Left, current, "true", names, counter); err != nil {
			return err
		}
		return drawNode(graph, n.Right, current, "false", names, counter)
	case *Leaf:
		current.SetShape(cgraph.BoxShape)
		current.SetLabel(leafLabel(n))
	}
	return nil
}

func splitLabel(s *Split, names []string) string {
	name := fmt.Sprintf("column %d", s.Column)
	if s.Column < len(names) && names[s.Column] != "" {
		name = names[s.Column]
	}
	op := "<="
	if s.Categorical {
		op = "=="
	}
	return fmt.Sprintf("%s %s %g\nimpurity = %.4f\nsamples = %d", name, op, s.Value, s.Impurity, s.N)
}

func leafLabel(l *Leaf) string {
	if l.Probabilities == nil {
		return fmt.Sprintf("value = %g\nimpurity = %.4f\nsamples = %d", l.Value, l.Impurity, l.N)
	}
	classes := make([]string, 0, len(l.Probabilities))
	for c := range l.Probabilities {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	var b strings.Builder
	fmt.Fprintf(&b, "class = %s\nsamples = %d", l.Class, l.N)
	for _, c := range classes {
		fmt.Fprintf(&b, "\n%s: %.2f", c, l.Probabilities[c])
	}
	return b.String()
}
