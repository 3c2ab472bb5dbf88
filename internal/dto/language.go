package dto

// CreateLanguageRequest seeds a catalog entry.
type CreateLanguageRequest struct {
	Code        string `json:"code" validate:"required,max=10"`
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"required,oneof=bantu nilotic cushitic other"`
	Description string `json:"description"`
}

// TypeBreakdownEntry is one grouped count of contributions by type and
// content type.
type TypeBreakdownEntry struct {
	Type        string `db:"type" json:"type"`
	ContentType string `db:"content_type" json:"content_type"`
	Count       int    `db:"count" json:"count"`
}

// LanguageStats aggregates a language's denormalized counters with a grouped
// count over its contributions.
type LanguageStats struct {
	Code              string               `json:"code"`
	TotalWords        int                  `json:"total_words"`
	TotalSentences    int                  `json:"total_sentences"`
	TotalAudio        int                  `json:"total_audio"`
	TotalContributors int                  `json:"total_contributors"`
	ContributionTypes []TypeBreakdownEntry `json:"contribution_types"`
}
