package model

import "strings"

// TagPair is a two-level category label: tag plus optional subtag.
type TagPair struct {
	Tag    string
	Subtag string
}

// ParseTagPair splits free text like "Food, Coffee" on the first separator.
// Text without a separator becomes a tag with an empty subtag.
func ParseTagPair(text, separator string) TagPair {
	tag, subtag, _ := strings.Cut(text, separator)
	return TagPair{Tag: strings.TrimSpace(tag), Subtag: strings.TrimSpace(subtag)}
}

// String renders the pair for prompts: `Food [Coffee]` or just `Food`.
func (p TagPair) String() string {
	if p.Subtag == "" {
		return p.Tag
	}
	return p.Tag + " [" + p.Subtag + "]"
}

// Label renders the combined display column, e.g. "Food - Coffee".
func (p TagPair) Label(delimiter string) string {
	return p.Tag + delimiter + p.Subtag
}
