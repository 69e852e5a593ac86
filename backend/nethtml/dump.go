package nethtml

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Dump renders a parsed document in the html5lib tree-construction
// format: each line starts with "| " plus two spaces per depth level.
func Dump(doc *html.Node) string {
	var sb strings.Builder
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		dumpNode(&sb, c, 0)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// DumpNodes renders the top-level nodes of a fragment parse.
func DumpNodes(nodes []*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		dumpNode(&sb, n, 0)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString("| ")
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
}

func dumpNode(sb *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.ElementNode:
		indent(sb, depth)
		if n.Namespace != "" {
			fmt.Fprintf(sb, "<%s %s>\n", n.Namespace, n.Data)
		} else {
			fmt.Fprintf(sb, "<%s>\n", n.Data)
		}

		// Attributes print one level deeper, sorted by rendered name so
		// both engines agree on ordering.
		attrs := make([]html.Attribute, len(n.Attr))
		copy(attrs, n.Attr)
		sort.Slice(attrs, func(i, j int) bool {
			return attrName(attrs[i]) < attrName(attrs[j])
		})
		for _, a := range attrs {
			indent(sb, depth+1)
			sb.WriteString(attrName(a))
			sb.WriteString(`="`)
			sb.WriteString(a.Val)
			sb.WriteString("\"\n")
		}

		childDepth := depth + 1
		if n.DataAtom == atom.Template && n.Namespace == "" {
			// Template children render under a synthetic content node.
			indent(sb, childDepth)
			sb.WriteString("content\n")
			childDepth++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			dumpNode(sb, c, childDepth)
		}

	case html.TextNode:
		indent(sb, depth)
		sb.WriteByte('"')
		sb.WriteString(n.Data)
		sb.WriteString("\"\n")

	case html.CommentNode:
		indent(sb, depth)
		sb.WriteString("<!-- ")
		sb.WriteString(n.Data)
		sb.WriteString(" -->\n")

	case html.DoctypeNode:
		indent(sb, depth)
		sb.WriteString("<!DOCTYPE ")
		sb.WriteString(n.Data)
		var public, system string
		for _, a := range n.Attr {
			switch a.Key {
			case "public":
				public = a.Val
			case "system":
				system = a.Val
			}
		}
		if public != "" || system != "" {
			fmt.Fprintf(sb, " \"%s\" \"%s\"", public, system)
		}
		sb.WriteString(">\n")
	}
}

// attrName renders an attribute the way the dump format spells it:
// namespaced attributes as "ns key", plain ones as the key alone.
func attrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + " " + a.Key
	}
	return a.Key
}
