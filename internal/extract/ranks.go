// internal/extract/ranks.go
package extract

import (
	"regexp"
	"strings"

	"github.com/brandpulse/brandpulse/internal/models"
)

// List marker families, tried in fixed precedence on each line. A line like
// "1. - item" is numeric, never bullet (documented decision; the source
// material leaves this open).
var (
	numericMarker  = regexp.MustCompile(`^\s*\d{1,3}[.)]\s+`)
	letteredMarker = regexp.MustCompile(`^\s*[A-Za-z][.)]\s+`)
	bulletMarker   = regexp.MustCompile(`^\s*[-*•]\s+`)
)

// listItem is an ephemeral span of text recognized as one entry of an
// ordered or bulleted list, with its 1-based position inside its block.
type listItem struct {
	start    int // byte offset of the marker line
	end      int // byte offset one past the item text
	position int
}

// AssignRanks populates RankPosition on the given mentions by matching their
// occurrence offsets against detected list items. Positions restart at 1 for
// every contiguous list block: a blank line ends the block, so independent
// lists in one answer each rank from 1. Plain lines between markers continue
// the open item, covering wrapped item text. Every brand
// inside a single item shares that item's position. Mentions never ranked
// keep RankPosition = nil. The parser never creates mentions.
func AssignRanks(text string, mentions []*models.Mention) []*models.Mention {
	items := parseListItems(text)
	if len(items) == 0 {
		return mentions
	}

	for _, m := range mentions {
		best := 0
		for _, off := range m.Offsets {
			for _, item := range items {
				if off >= item.start && off < item.end {
					if best == 0 || item.position < best {
						best = item.position
					}
					break
				}
			}
		}
		if best > 0 {
			rank := best
			m.RankPosition = &rank
		}
	}
	return mentions
}

func parseListItems(text string) []listItem {
	var items []listItem
	var open *listItem // item currently accumulating text
	inBlock := false
	position := 0

	offset := 0
	for _, line := range splitLinesKeepEnds(text) {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			// Blank line: close the current item and end the block.
			if open != nil {
				open.end = lineStart
				items = append(items, *open)
				open = nil
			}
			inBlock = false
			position = 0

		case isListMarker(line):
			if open != nil {
				open.end = lineStart
				items = append(items, *open)
			}
			if !inBlock {
				inBlock = true
				position = 0
			}
			position++
			open = &listItem{start: lineStart, position: position}

		default:
			// Plain text: inside a block it continues the open item,
			// outside it is an ordinary paragraph.
		}
	}

	if open != nil {
		open.end = len(text)
		items = append(items, *open)
	}
	return items
}

func isListMarker(line string) bool {
	return numericMarker.MatchString(line) ||
		letteredMarker.MatchString(line) ||
		bulletMarker.MatchString(line)
}

// splitLinesKeepEnds splits on '\n' keeping the terminator with each line so
// byte offsets stay exact.
func splitLinesKeepEnds(text string) []string {
	var lines []string
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}
