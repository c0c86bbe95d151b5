package models

// NormalizedSource is the canonical source shape attached to responses and
// final events. Snippet is deterministically truncated (≤400 chars by
// default) during normalization; raw provider payloads are never carried.
type NormalizedSource struct {
	DocumentID  string  `json:"document_id,omitempty"`
	Title       string  `json:"title,omitempty"`
	URL         string  `json:"url,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Collection  string  `json:"collection,omitempty"`
	AccessLevel string  `json:"access_level,omitempty"`
	Snippet     string  `json:"snippet,omitempty"`
}

// DedupeKey returns the first non-empty of url, document_id, title — the
// identity used when merging source lists. Empty when the source carries
// none of the three.
func (s NormalizedSource) DedupeKey() string {
	if s.URL != "" {
		return s.URL
	}
	if s.DocumentID != "" {
		return s.DocumentID
	}
	return s.Title
}
