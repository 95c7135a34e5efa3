package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
)

const casesCacheKey = "cases:all"

type caseStore interface {
	ListAll(ctx context.Context) ([]models.RawCase, error)
	FindByID(ctx context.Context, id string) (models.RawCase, error)
	Insert(ctx context.Context, c *models.NewCase) error
	Delete(ctx context.Context, id string) (int64, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// CaseService fronts the case store. Rows are normalized once here so callers only
// ever see canonical records.
type CaseService struct {
	repo     caseStore
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewCaseService constructs a CaseService. cache and metrics may be nil.
func NewCaseService(repo caseStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{repo: repo, cache: cache, metrics: metrics, logger: logger, cacheTTL: cacheTTL}
}

// List returns the authoritative collection, newest first, from cache when possible.
func (s *CaseService) List(ctx context.Context) ([]models.CaseRecord, bool, error) {
	var cached []models.CaseRecord
	if hit, _ := s.cache.Get(ctx, casesCacheKey, &cached); hit {
		return cached, true, nil
	}
	records, err := s.Fresh(ctx)
	return records, false, err
}

// Fresh always reads the store and refreshes the cache.
func (s *CaseService) Fresh(ctx context.Context) ([]models.CaseRecord, error) {
	start := time.Now()
	rows, err := s.repo.ListAll(ctx)
	s.metrics.ObserveDBQuery("cases.list", time.Since(start))
	if err != nil {
		s.logger.Error("failed to load cases", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load cases")
	}

	records := make([]models.CaseRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, s.normalize(row))
	}
	_ = s.cache.Set(ctx, casesCacheKey, records, s.cacheTTL)
	return records, nil
}

// Get returns one record by identifier.
func (s *CaseService) Get(ctx context.Context, id string) (*models.CaseRecord, error) {
	start := time.Now()
	row, err := s.repo.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("cases.get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load case")
	}
	record := s.normalize(row)
	return &record, nil
}

// Create inserts a submitted case.
func (s *CaseService) Create(ctx context.Context, c *models.NewCase) error {
	start := time.Now()
	err := s.repo.Insert(ctx, c)
	s.metrics.ObserveDBQuery("cases.insert", time.Since(start))
	if err != nil {
		s.logger.Error("failed to insert case", zap.String("case_id", c.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save case")
	}
	_ = s.cache.Invalidate(ctx, casesCacheKey)
	s.metrics.RecordCaseEvent(CaseEventCreated, 1)
	return nil
}

// Delete removes the given identifiers.
func (s *CaseService) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	var (
		n   int64
		err error
	)
	if len(ids) == 1 {
		n, err = s.repo.Delete(ctx, ids[0])
	} else {
		n, err = s.repo.DeleteMany(ctx, ids)
	}
	s.metrics.ObserveDBQuery("cases.delete", time.Since(start))
	if err != nil {
		s.logger.Error("failed to delete cases", zap.Strings("case_ids", ids), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete cases")
	}
	_ = s.cache.Invalidate(ctx, casesCacheKey)
	s.metrics.RecordCaseEvent(CaseEventDeleted, int(n))
	return nil
}

func (s *CaseService) normalize(row models.RawCase) models.CaseRecord {
	record := NormalizeCase(row)
	if record.CaseCode != models.Severity(models.Unspecified) && !record.CaseCode.Known() {
		s.logger.Debug("unmapped case code", zap.String("case_id", record.ID), zap.String("case_code", string(record.CaseCode)))
		s.metrics.RecordCaseEvent(CaseEventUnmapped, 1)
	}
	return record
}
