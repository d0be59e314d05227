package moderation

import "strings"

// DefaultRedactionMarker replaces content that matched the deny list.
const DefaultRedactionMarker = "[message removed]"

// Filter redacts content that contains a denied substring.
type Filter struct {
	marker string
	static []string
}

// NewFilter returns a Filter that always applies static in addition to the per-call deny list.
func NewFilter(marker string, static []string) *Filter {
	if marker == "" {
		marker = DefaultRedactionMarker
	}
	return &Filter{marker: marker, static: static}
}

// Apply redacts content against the static list and denyList.
func (f *Filter) Apply(content string, denyList []string) (string, bool) {
	if out, hit := Redact(content, f.static, f.marker); hit {
		return out, true
	}
	return Redact(content, denyList, f.marker)
}

// Redact matches content case-insensitively against denyList. Any hit replaces the whole
// content with marker and reports true; the content is still meant to be delivered.
func Redact(content string, denyList []string, marker string) (string, bool) {
	if len(denyList) == 0 {
		return content, false
	}
	lower := strings.ToLower(content)
	for _, term := range denyList {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(lower, term) {
			return marker, true
		}
	}
	return content, false
}
