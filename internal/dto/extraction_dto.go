package dto

// ExtractionResponse carries the text recovered from an uploaded document.
// Failures are folded into Text as an inline diagnostic so downstream stages
// always receive a string; Method reports how the text was obtained.
type ExtractionResponse struct {
	Text       string `json:"text"`
	Method     string `json:"method"`
	Characters int    `json:"characters"`
	Note       string `json:"note,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
}
