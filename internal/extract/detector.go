// internal/extract/detector.go
package extract

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/brandpulse/brandpulse/internal/models"
)

// snippetRadius is the context window kept around the first occurrence of a
// brand, in bytes, clipped at text boundaries.
const snippetRadius = 40

// DetectMentions finds every registered brand in text, case-insensitively and
// whole-word, returning at most one Mention per normalized name in order of
// first appearance. When one configured name is a prefix or substring of
// another ("Sales" inside "Salesforce"), the longest configured form claims
// the text span and the shorter one is suppressed there. Pure function:
// empty text or an exhausted registry yields an empty slice, never an error.
func DetectMentions(text string, registry *Registry) []*models.Mention {
	if text == "" || registry == nil || registry.Len() == 0 {
		return nil
	}

	claimed := make([]bool, len(text))
	var mentions []*models.Mention

	// Registry entries are ordered longest-first, so spans claimed by a
	// longer brand block shorter brands from matching inside them.
	for _, entry := range registry.entries {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(entry.raw))
		var offsets []int
		var firstRaw string

		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if !wholeWord(text, start, end) || spanClaimed(claimed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				claimed[i] = true
			}
			offsets = append(offsets, start)
			if firstRaw == "" {
				firstRaw = text[start:end]
			}
		}

		if len(offsets) == 0 {
			continue
		}

		mentions = append(mentions, &models.Mention{
			BrandName:      firstRaw,
			NormalizedName: entry.normalized,
			IsMine:         entry.isMine,
			ContextSnippet: snippet(text, offsets[0], offsets[0]+len(firstRaw)),
			Offsets:        offsets,
		})
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Offsets[0] < mentions[j].Offsets[0]
	})
	return mentions
}

// wholeWord checks that a match is not embedded in a larger word. The check
// only applies on sides where the matched text itself starts or ends with a
// word character, so names like "C++" still match next to letters.
func wholeWord(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start]) {
		if isWordByte(text[start-1]) {
			return false
		}
	}
	if end < len(text) && isWordByte(text[end-1]) {
		if isWordByte(text[end]) {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		b >= 0x80 // treat multi-byte runes as word characters
}

func spanClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

// snippet returns a fixed-width window around the match, clipped at text
// boundaries and adjusted so it never splits a UTF-8 sequence. No mid-word
// truncation guarantee is made.
func snippet(text string, start, end int) string {
	lo := start - snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi]
}
