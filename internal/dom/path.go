package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// StructuralPath computes a stable, human-readable locator for a node, used
// for logging and report diagnostics. It is never an identity key: after
// structural mutations two distinct nodes can compute the same path.
//
// Elements with an id become the anchor of the expression; shadow boundaries
// render as a #shadow hop between the host path and the inner path.
func (d *Document) StructuralPath(n *html.Node) string {
	if n == nil {
		return ""
	}

	var segments []string
	cur := n
	for cur != nil && cur != d.root {
		if cur.Type != html.ElementNode {
			// Shadow roots and stray non-elements contribute a boundary
			// marker; text/comment nodes contribute nothing.
			if d.hosts[cur] != nil {
				segments = append(segments, "#shadow")
			}
			cur = d.Parent(cur)
			continue
		}

		tag := strings.ToLower(cur.Data)
		if id := Attr(cur, "id"); id != "" {
			segments = append(segments, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		// 1-based index among preceding siblings with the same tag.
		index := 1
		for prev := cur.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
				index++
			}
		}
		segments = append(segments, fmt.Sprintf("%s[%d]", tag, index))
		cur = d.Parent(cur)
	}

	if len(segments) == 0 {
		return "/"
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	path := strings.Join(segments, "/")
	if !strings.HasPrefix(path, "//*[@id=") {
		path = "/" + path
	}
	return path
}
