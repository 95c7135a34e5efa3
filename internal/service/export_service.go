package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/export"
	"github.com/noah-isme/caselog-api/pkg/storage"
)

// Export schema labels.
const (
	ExportSheetTitle   = "حالات الطوارئ"
	exportFilePrefix   = "حالات_الطوارئ_"
	colCaseCode        = "رمز الحالة"
	colRescuerName     = "اسم المسعف"
	colRescuerRank     = "رتبة المسعف"
	colTrainer         = "المدرب"
	colDate            = "التاريخ"
	colCaseDetails     = "تفاصيل الحالة"
	noDetailsPlacehold = "لا توجد تفاصيل"
)

// ExportHeaders is the column order of every export.
var ExportHeaders = []string{colCaseCode, colRescuerName, colRescuerRank, colTrainer, colDate, colCaseDetails}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// DatasetRenderer encodes an export dataset into one file format.
type DatasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders case exports, stores them and signs download links.
type ExportService struct {
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ExportFormat]DatasetRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. XLSX and CSV are always available;
// PDF is only served when a renderer for it is passed in, since the built-in PDF
// fonts cannot draw Arabic.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger, renderers map[models.ExportFormat]DatasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	all := map[models.ExportFormat]DatasetRenderer{
		models.ExportFormatXLSX: export.NewXLSXExporter(true),
		models.ExportFormatCSV:  export.NewCSVExporter(),
	}
	for format, r := range renderers {
		all[format] = r
	}
	return &ExportService{
		storage:   store,
		signer:    signer,
		renderers: all,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// BuildCaseDataset maps records to the export schema, newest incident first.
func BuildCaseDataset(records []models.CaseRecord) export.Dataset {
	ordered := append([]models.CaseRecord(nil), records...)
	sortCases(ordered, models.SortByDate, models.SortDesc)

	rows := make([]map[string]string, 0, len(ordered))
	for _, rec := range ordered {
		details := rec.CaseDetails
		if details == "" || details == models.Unspecified {
			details = noDetailsPlacehold
		}
		rows = append(rows, map[string]string{
			colCaseCode:    orUnspecified(string(rec.CaseCode)),
			colRescuerName: orUnspecified(rec.RescuerName),
			colRescuerRank: orUnspecified(rec.RescuerRank),
			colTrainer:     orUnspecified(rec.Trainer),
			colDate:        rec.Date.String(),
			colCaseDetails: details,
		})
	}
	return export.Dataset{Title: ExportSheetTitle, Headers: ExportHeaders, Rows: rows}
}

func orUnspecified(s string) string {
	if s == "" {
		return models.Unspecified
	}
	return s
}

// ExportFilename returns the dated download name for format.
func ExportFilename(format models.ExportFormat, at time.Time) string {
	return exportFilePrefix + at.Format(models.DateLayout) + "." + string(format)
}

// Export renders records in format, stores the file and returns a signed link.
func (s *ExportService) Export(ctx context.Context, records []models.CaseRecord, format models.ExportFormat) (*models.ExportResult, error) {
	if format == "" {
		format = models.ExportFormatXLSX
	}
	renderer, ok := s.renderers[format]
	if !ok && format == models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pdf export requires a UTF-8 font (EXPORT_PDF_FONT)")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	payload, err := renderer.Render(BuildCaseDataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := ExportFilename(format, s.now())
	relPath, err := s.storage.Save(path.Join(id, filename), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Sign(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	if removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Debug("removed stale exports", zap.Int("count", len(removed)))
	}

	s.metrics.RecordCaseEvent(CaseEventExported, len(records))
	s.logger.Info("export generated", zap.String("export_id", id), zap.String("format", string(format)), zap.Int("rows", len(records)))

	return &models.ExportResult{
		ID:        id,
		Filename:  filename,
		Format:    format,
		Rows:      len(records),
		URL:       fmt.Sprintf("%s/export/%s", s.cfg.APIPrefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed download token to the stored file and its download name.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	download, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(download.Path)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	return file, path.Base(download.Path), nil
}
