package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/dustin/go-humanize"
)

// TreeSource supplies the referral structure to draw.
type TreeSource interface {
	DirectReferrals(address string) []string
	DescendantCount(address string) (int, error)
}

// treeNode is the JSON shape of a rendered referral tree.
type treeNode struct {
	Address  string     `json:"address"`
	Count    int        `json:"count"`
	Children []treeNode `json:"children,omitempty"`
}

// Tree draws the referral tree under root. maxDepth limits how many levels
// below root are shown; zero means no limit. Truncated subtrees show
// their hidden size.
func (p *Printer) Tree(src TreeSource, root string, maxDepth int) error {
	if _, err := src.DescendantCount(root); err != nil {
		return err
	}
	node := collect(src, root, 0, maxDepth)
	if p.json {
		return p.JSON(node)
	}
	fmt.Fprintln(p.out, p.render(node, 0, maxDepth).String())
	return nil
}

func collect(src TreeSource, addr string, depth, maxDepth int) treeNode {
	n, _ := src.DescendantCount(addr)
	node := treeNode{Address: addr, Count: n}
	if maxDepth > 0 && depth >= maxDepth {
		return node
	}
	for _, c := range src.DirectReferrals(addr) {
		node.Children = append(node.Children, collect(src, c, depth+1, maxDepth))
	}
	return node
}

func (p *Printer) label(n treeNode, truncated bool) string {
	text := n.Address
	if n.Count > 0 {
		text += " " + p.st.muted.Render("("+humanize.Comma(int64(n.Count))+")")
	}
	if truncated {
		text += " " + p.st.accent.Render("…")
	}
	return text
}

func (p *Printer) render(n treeNode, depth, maxDepth int) *tree.Tree {
	t := tree.Root(p.label(n, false)).Enumerator(tree.RoundedEnumerator)
	for _, c := range n.Children {
		truncated := maxDepth > 0 && depth+1 >= maxDepth && c.Count > 0
		if len(c.Children) == 0 {
			t.Child(p.label(c, truncated))
			continue
		}
		t.Child(p.render(c, depth+1, maxDepth))
	}
	return t
}
