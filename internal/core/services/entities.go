package services

import (
	"strings"
	"unicode"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// CleanText prepares text for entity extraction: every character that is not
// a letter or whitespace is removed, whitespace runs collapse to one space and
// the result is trimmed. Entity offsets refer to this cleaned text.
func CleanText(text string, lowercase bool) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			if lowercase {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

// MergeEntities normalises raw model tags and merges adjacent spans.
//
// Consecutive tags of the same type merge when the next tag starts at most one
// character after the previous one ends. A zero gap is a word-piece
// continuation ("##" is dropped); a one-character gap is a single space.
// Outside tags ("O") are ignored and merged entities with fewer than
// minLength characters are discarded. The returned entities carry no
// document id.
func MergeEntities(tags []domain.RawTag, minLength int) []domain.Entity {
	var out []domain.Entity
	var cur *domain.Entity

	flush := func() {
		if cur == nil {
			return
		}
		if len([]rune(cur.Value)) >= minLength {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, tag := range tags {
		if isOutsideTag(tag.Type) {
			flush()
			continue
		}
		typ := domain.ParseEntityType(tag.Type)
		value := strings.TrimSpace(tag.Value)

		if cur != nil && cur.Type == typ {
			switch gap := tag.Start - cur.End; gap {
			case 0:
				cur.Value += strings.TrimPrefix(value, "##")
				cur.End = tag.End
				continue
			case 1:
				cur.Value += " " + value
				cur.End = tag.End
				continue
			}
		}

		flush()
		cur = &domain.Entity{
			Type:  typ,
			Value: strings.TrimPrefix(value, "##"),
			Start: tag.Start,
			End:   tag.End,
		}
	}
	flush()

	return out
}

func isOutsideTag(tag string) bool {
	t := strings.TrimSpace(tag)
	return t == "" || t == "O"
}

// contextWindow returns up to width runes of text on each side of [start, end).
func contextWindow(text string, start, end, width int) string {
	r := []rune(text)
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	lo := max(0, start-width)
	hi := min(len(r), end+width)
	return string(r[lo:hi])
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
