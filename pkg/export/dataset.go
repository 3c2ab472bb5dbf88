package export

// ContributionHeaders is the canonical column order for contribution
// datasets. Renderers fall back to it when a dataset carries no headers.
var ContributionHeaders = []string{
	"ID", "Type", "ContentType", "Original", "Translated",
	"Status", "Validations", "Positive", "CreatedAt",
}

// Dataset defines tabular export content. Row values are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) headers() []string {
	if len(d.Headers) > 0 {
		return d.Headers
	}
	return ContributionHeaders
}
