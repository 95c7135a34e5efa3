package service

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
)

// Arabic messages shown by the submission form.
const (
	msgFormIncomplete = "يرجى ملء جميع الحقول"
	msgSaveFailed     = "فشل حفظ الحالة"
)

type caseCreator interface {
	Create(ctx context.Context, c *models.NewCase) error
}

var (
	caseValidatorOnce sync.Once
	caseValidator     *validator.Validate
)

// NewCaseValidator returns a validator with the rank, trainer and severity rules.
func NewCaseValidator() *validator.Validate {
	caseValidatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("rank", oneOfList(models.Ranks))
		_ = v.RegisterValidation("trainer", oneOfList(models.Trainers))
		_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
			_, ok := NormalizeSeverity(fl.Field().String())
			return ok
		})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		caseValidator = v
	})
	return caseValidator
}

func oneOfList(allowed []string) validator.Func {
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := set[strings.TrimSpace(fl.Field().String())]
		return ok
	}
}

// FormController holds one submission form. A successful Submit clears Form; a
// failed one keeps it and sets Err.
type FormController struct {
	Form    models.CaseForm
	Err     error
	Created *models.NewCase

	cases    caseCreator
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// CaseFormService hands out form controllers bound to the case store.
type CaseFormService struct {
	cases    caseCreator
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewCaseFormService constructs a CaseFormService.
func NewCaseFormService(cases caseCreator, validate *validator.Validate, logger *zap.Logger) *CaseFormService {
	if validate == nil {
		validate = NewCaseValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseFormService{cases: cases, validate: validate, logger: logger, now: time.Now, newID: uuid.NewString}
}

// NewForm returns a controller pre-filled with form.
func (s *CaseFormService) NewForm(form models.CaseForm) *FormController {
	return &FormController{
		Form:     form,
		cases:    s.cases,
		validate: s.validate,
		logger:   s.logger,
		now:      s.now,
		newID:    s.newID,
	}
}

// Submit validates and stores form, returning the canonical record.
func (s *CaseFormService) Submit(ctx context.Context, form models.CaseForm) (*models.CaseRecord, error) {
	fc := s.NewForm(form)
	if !fc.Submit(ctx) {
		return nil, fc.Err
	}
	c := fc.Created
	record := models.CaseRecord{
		ID:          c.ID,
		RescuerName: c.RescuerName,
		RescuerRank: c.RescuerRank,
		Trainer:     c.Trainer,
		CaseDetails: c.CaseDetails,
		CreatedAt:   c.CreatedAt,
	}
	record.CaseCode, _ = NormalizeSeverity(c.CaseCode)
	record.Date, _ = models.ParseCaseDate(c.Date)
	return &record, nil
}

// Submit reports whether the case was stored.
func (f *FormController) Submit(ctx context.Context) bool {
	f.Err = nil
	form := trimForm(f.Form)

	if err := f.validate.Struct(form); err != nil {
		f.Err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msgFormIncomplete)
		return false
	}
	if form.Date.IsZero() {
		f.Err = appErrors.Clone(appErrors.ErrValidation, msgFormIncomplete)
		return false
	}

	code, _ := NormalizeSeverity(form.CaseCode)
	row := &models.NewCase{
		ID:          f.newID(),
		RescuerName: form.RescuerName,
		RescuerRank: form.RescuerRank,
		Trainer:     form.Trainer,
		Date:        form.Date.Format(models.DateLayout),
		CaseCode:    string(code),
		CaseDetails: form.CaseDetails,
		CreatedAt:   f.now().UTC(),
	}
	if err := f.cases.Create(ctx, row); err != nil {
		appErr := appErrors.FromError(err)
		f.Err = appErrors.Wrap(err, appErr.Code, appErr.Status, msgSaveFailed+": "+appErr.Message)
		return false
	}

	f.logger.Info("case submitted", zap.String("case_id", row.ID), zap.String("case_code", row.CaseCode))
	f.Created = row
	f.Form = models.CaseForm{}
	return true
}

func trimForm(f models.CaseForm) models.CaseForm {
	f.RescuerName = strings.TrimSpace(f.RescuerName)
	f.RescuerRank = strings.TrimSpace(f.RescuerRank)
	f.Trainer = strings.TrimSpace(f.Trainer)
	f.CaseCode = strings.TrimSpace(f.CaseCode)
	f.CaseDetails = strings.TrimSpace(f.CaseDetails)
	return f
}
