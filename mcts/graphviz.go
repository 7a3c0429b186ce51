package mcts

import (
	"fmt"

	"github.com/awalterschulze/gographviz"

	"github.com/gozero/engine/board"
)

// DumpGraphviz renders the live tree (down to maxDepth plies from the
// root) as a Graphviz DOT string: one node per inflated Node, labeled
// with its move, visit count and raw black-POV value. Intended for
// interactive debugging of a stuck or surprising search, not for
// machine consumption.
func (t *Tree) DumpGraphviz(maxDepth int) string {
	root, _ := t.Root()
	g := gographviz.NewGraph()
	g.SetName("search")
	g.SetDir(true)

	var walk func(n *Node, id string, depth int)
	walk = func(n *Node, id string, depth int) {
		label := fmt.Sprintf("\"%s\\nvisits=%d val=%.3f\"", moveLabel(n.Move()), n.Visits(), n.RawEval(board.Black))
		g.AddNode("search", id, map[string]string{"label": label})
		if depth >= maxDepth || !n.HasChildren() {
			return
		}
		for i, c := range n.Children() {
			cn := c.ptr.Load()
			if cn == nil {
				continue
			}
			childID := fmt.Sprintf("%s_%d", id, i)
			walk(cn, childID, depth+1)
			g.AddEdge(id, childID, true, map[string]string{
				"label": fmt.Sprintf("\"p=%.3f\"", c.Prior()),
			})
		}
	}
	walk(root, "root", 0)
	return g.String()
}

func moveLabel(m board.Move) string {
	switch m {
	case board.NoMove:
		return "root"
	case board.ResignMove:
		return "resign"
	default:
		return fmt.Sprintf("%d", int32(m))
	}
}
