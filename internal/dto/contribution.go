package dto

// CreateTextContributionRequest is the payload for submitting a text
// translation unit.
type CreateTextContributionRequest struct {
	LanguageCode   string `json:"language_code" validate:"required"`
	ContentType    string `json:"content_type" validate:"required,oneof=word sentence paragraph story"`
	OriginalText   string `json:"original_text" validate:"required"`
	TranslatedText string `json:"translated_text" validate:"required"`
	Context        string `json:"context"`
	Anonymous      bool   `json:"anonymous"`
}

// CreateAudioContributionRequest carries the multipart form fields for an
// audio submission; the file itself travels alongside as AudioPayload.
type CreateAudioContributionRequest struct {
	LanguageCode   string `form:"language_code" validate:"required"`
	ContentType    string `form:"content_type" validate:"required,oneof=word sentence paragraph story"`
	OriginalText   string `form:"original_text" validate:"required"`
	TranslatedText string `form:"translated_text" validate:"required"`
	Context        string `form:"context"`
	Anonymous      bool   `form:"anonymous"`

	AudioPayload AudioPayload `form:"-" validate:"-"`
}

// AudioPayload describes the uploaded blob handed to the storage collaborator.
type AudioPayload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// AudioDownload references a stored audio file via a signed token.
type AudioDownload struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}
