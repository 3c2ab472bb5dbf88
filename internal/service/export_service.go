package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mylugha/mylugha-api/internal/models"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
	"github.com/mylugha/mylugha-api/pkg/export"
)

// ExportFormat identifies a dataset rendering.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type exportContributionStore interface {
	List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, int, error)
}

type exportLanguageReader interface {
	FindByCode(ctx context.Context, code string) (*models.Language, error)
}

// ExportFile is a rendered dataset ready to be streamed to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a language's contributions into downloadable files.
type ExportService struct {
	contributions exportContributionStore
	languages     exportLanguageReader
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	logger        *zap.Logger
}

// NewExportService builds an ExportService.
func NewExportService(contributions exportContributionStore, languages exportLanguageReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		contributions: contributions,
		languages:     languages,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		logger:        logger,
	}
}

// Export renders the contributions of a language in the requested format.
// Pages through the store in fixed batches so large catalogs do not need a
// single oversized query.
func (s *ExportService) Export(ctx context.Context, languageCode string, format ExportFormat, status *models.ContributionStatus) (*ExportFile, error) {
	language, err := s.languages.FindByCode(ctx, languageCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "language not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load language")
	}

	dataset := export.Dataset{Headers: export.ContributionHeaders}

	filter := models.ContributionFilter{
		LanguageCode: language.Code,
		Status:       status,
		Page:         1,
		PageSize:     100,
	}
	for {
		batch, total, err := s.contributions.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contributions")
		}
		for _, c := range batch {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"ID":          c.ID,
				"Type":        string(c.Type),
				"ContentType": string(c.ContentType),
				"Original":    c.OriginalText,
				"Translated":  c.TranslatedText,
				"Status":      string(c.Status),
				"Validations": strconv.Itoa(c.ValidationsCount),
				"Positive":    strconv.Itoa(c.PositiveValidations),
				"CreatedAt":   c.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(batch) == 0 || len(dataset.Rows) >= total {
			break
		}
		filter.Page++
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-contributions-%s.csv", language.Code, stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, fmt.Sprintf("%s contributions", language.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-contributions-%s.pdf", language.Code, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
