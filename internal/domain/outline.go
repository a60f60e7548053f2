package domain

// OutlineNode is one node of a reconstructed project outline: either a
// standalone page or a group of consecutive pages sharing a part label.
// Exactly one of Page / Pages is populated.
type OutlineNode struct {
	// Part is the section label for group nodes; empty for standalone pages.
	Part string `json:"part,omitempty"`

	// Page is set for standalone nodes.
	Page *PageOutline `json:"page,omitempty"`

	// Pages is set for part-group nodes, in page order.
	Pages []PageOutline `json:"pages,omitempty"`
}

// IsGroup reports whether the node is a part group.
func (n OutlineNode) IsGroup() bool {
	return n.Part != ""
}

// BuildOutline reconstructs a project outline from its pages, which must be
// ordered by position. Consecutive pages sharing the same non-empty part
// label collapse into one group node; a change in part value, including a
// transition to or from "no part", closes the current group. Pages sharing a
// part label across a gap are NOT merged: grouping is strictly positional.
// Pages without outline content are skipped.
func BuildOutline(pages []*Page) []OutlineNode {
	var outline []OutlineNode

	currentPart := ""
	var currentPages []PageOutline

	flush := func() {
		if currentPart != "" && len(currentPages) > 0 {
			outline = append(outline, OutlineNode{Part: currentPart, Pages: currentPages})
		}
		currentPart = ""
		currentPages = nil
	}

	for _, page := range pages {
		if page.Outline == nil {
			continue
		}

		if page.Part == "" {
			flush()
			outline = append(outline, OutlineNode{Page: page.Outline})
			continue
		}

		if page.Part != currentPart {
			flush()
			currentPart = page.Part
		}
		currentPages = append(currentPages, *page.Outline)
	}
	flush()

	return outline
}
