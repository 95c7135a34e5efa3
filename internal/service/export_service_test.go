package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/export"
	"github.com/noah-isme/caselog-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, nil, zap.NewNop(), nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC) }
	return svc
}

func exportRecords() []models.CaseRecord {
	return []models.CaseRecord{
		{ID: "1", RescuerName: "Omar", RescuerRank: "مسعف", Trainer: "سليمان سعيد", CaseCode: models.SeverityRed, Date: day("2024-03-01"), CaseDetails: "broken arm"},
		{ID: "2", RescuerName: models.Unspecified, RescuerRank: models.Unspecified, Trainer: models.Unspecified, CaseCode: models.Severity(models.Unspecified), CaseDetails: models.Unspecified},
		{ID: "3", RescuerName: "Sami", RescuerRank: "قائد", Trainer: "رامي السمان", CaseCode: models.SeverityYellow, Date: day("2024-03-02"), CaseDetails: "burn"},
	}
}

func TestBuildCaseDatasetSchema(t *testing.T) {
	ds := BuildCaseDataset(exportRecords())

	assert.Equal(t, "حالات الطوارئ", ds.Title)
	assert.Equal(t, []string{"رمز الحالة", "اسم المسعف", "رتبة المسعف", "المدرب", "التاريخ", "تفاصيل الحالة"}, ds.Headers)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "Sami", ds.Rows[0]["اسم المسعف"])
	assert.Equal(t, "Omar", ds.Rows[1]["اسم المسعف"])
	missing := ds.Rows[2]
	assert.Equal(t, "غير محدد", missing["اسم المسعف"])
	assert.Equal(t, "غير محدد", missing["التاريخ"])
	assert.Equal(t, "غير محدد", missing["رمز الحالة"])
	assert.Equal(t, "لا توجد تفاصيل", missing["تفاصيل الحالة"])
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "حالات_الطوارئ_2024-03-02.xlsx", ExportFilename(models.ExportFormatXLSX, at))
}

func TestExportServiceXLSXRoundTrip(t *testing.T) {
	svc := newExportServiceForTest(t)

	res, err := svc.Export(context.Background(), exportRecords(), models.ExportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "حالات_الطوارئ_2024-03-02.xlsx", res.Filename)
	assert.Equal(t, 3, res.Rows)
	require.True(t, strings.HasPrefix(res.URL, "/api/v1/export/"))

	file, name, err := svc.Open(strings.TrimPrefix(res.URL, "/api/v1/export/"))
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, res.Filename, name)

	wb, err := excelize.OpenReader(file)
	require.NoError(t, err)
	rows, err := wb.GetRows("حالات الطوارئ")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, ExportHeaders, rows[0])
	assert.Equal(t, "red", rows[2][0])
}

func TestExportServiceCSV(t *testing.T) {
	svc := newExportServiceForTest(t)

	res, err := svc.Export(context.Background(), exportRecords()[:1], models.ExportFormatCSV)
	require.NoError(t, err)

	file, _, err := svc.Open(strings.TrimPrefix(res.URL, "/api/v1/export/"))
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "Omar", "مسعف", "سليمان سعيد", "2024-03-01", "broken arm"}, records[1])
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t)
	_, err := svc.Export(context.Background(), nil, models.ExportFormat("docx"))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportServiceRejectsPDFWithoutFont(t *testing.T) {
	svc := newExportServiceForTest(t)
	_, err := svc.Export(context.Background(), exportRecords(), models.ExportFormatPDF)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "EXPORT_PDF_FONT")
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) { return nil, errors.New("boom") }

func TestExportServiceRenderFailure(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(store, storage.NewSignedURLSigner("s", time.Hour), ExportConfig{}, nil, nil,
		map[models.ExportFormat]DatasetRenderer{models.ExportFormatPDF: failingRenderer{}})

	_, err = svc.Export(context.Background(), exportRecords(), models.ExportFormatPDF)
	require.Error(t, err)
}

func TestExportServiceOpenRejectsBadToken(t *testing.T) {
	svc := newExportServiceForTest(t)
	_, _, err := svc.Open("bogus")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
