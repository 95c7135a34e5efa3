package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
)

// Notice texts shown on the dashboard.
const (
	msgLoadFailed    = "حدث خطأ في جلب البيانات"
	msgDeleteFailed  = "حدث خطأ أثناء حذف الحالة"
	msgDeleted       = "تم حذف الحالة بنجاح"
	msgDeletedMany   = "تم حذف %d حالة بنجاح"
	msgNoneSelected  = "لم يتم تحديد أي حالة"
	msgExportFailed  = "حدث خطأ أثناء تصدير البيانات"
	msgExported      = "تم تصدير البيانات بنجاح"
	noticeLevelError = "error"
	noticeLevelInfo  = "success"
)

type caseSource interface {
	List(ctx context.Context) ([]models.CaseRecord, bool, error)
	Fresh(ctx context.Context) ([]models.CaseRecord, error)
	Delete(ctx context.Context, ids ...string) error
}

type sessionValidator interface {
	Validate(token, username string) bool
}

type caseExporter interface {
	Export(ctx context.Context, records []models.CaseRecord, format models.ExportFormat) (*models.ExportResult, error)
}

// DashboardController owns one admin's dashboard state: the authoritative
// collection, the filter criteria, the derived view and the selection. Every
// operation runs under the controller's lock.
type DashboardController struct {
	mu       sync.Mutex
	username string
	cases    caseSource
	sessions sessionValidator
	exporter caseExporter
	logger   *zap.Logger
	now      func() time.Time

	state       models.DashboardState
	all         []models.CaseRecord
	criteria    models.FilterCriteria
	view        []models.CaseRecord
	metrics     models.CaseMetrics
	selected    map[string]struct{}
	allSelected bool
	loadedAt    time.Time
	cacheHit    bool
	notices     []models.Notice
}

// NewDashboardController builds an uninitialized controller for username.
func NewDashboardController(username string, cases caseSource, sessions sessionValidator, exporter caseExporter, logger *zap.Logger) *DashboardController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardController{
		username: username,
		cases:    cases,
		sessions: sessions,
		exporter: exporter,
		logger:   logger.With(zap.String("username", username)),
		now:      time.Now,
		state:    models.DashboardUninitialized,
		criteria: DefaultCriteria(models.FilterCriteria{}),
		selected: make(map[string]struct{}),
	}
}

// State returns the lifecycle state.
func (d *DashboardController) State() models.DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Mount checks the session and loads the collection when it is not loaded yet.
// An invalid session moves the controller to redirect_login.
func (d *DashboardController) Mount(ctx context.Context, token, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if username != d.username || !d.sessions.Validate(token, username) {
		d.state = models.DashboardRedirectLogin
		d.resetLocked()
		return appErrors.ErrSessionExpired
	}
	if d.state == models.DashboardReady {
		return nil
	}

	d.state = models.DashboardLoading
	records, hit, err := d.cases.List(ctx)
	if err != nil {
		d.state = models.DashboardFailed
		d.noticeLocked(noticeLevelError, msgLoadFailed)
		d.logger.Warn("dashboard load failed", zap.Error(err))
		return err
	}
	d.replaceLocked(records)
	d.cacheHit = hit
	d.state = models.DashboardReady
	return nil
}

// SetCriteria replaces the filter criteria and re-derives the view without a fetch.
func (d *DashboardController) SetCriteria(criteria models.FilterCriteria) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	d.criteria = DefaultCriteria(criteria)
	d.deriveLocked()
	return nil
}

// Refresh refetches the collection. On failure the previous state is kept.
func (d *DashboardController) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}

	records, err := d.cases.Fresh(ctx)
	if err != nil {
		d.noticeLocked(noticeLevelError, msgLoadFailed)
		d.logger.Warn("dashboard refresh failed", zap.Error(err))
		return err
	}
	d.replaceLocked(records)
	d.cacheHit = false
	return nil
}

// DeleteOne deletes a single case and drops it from the local collection.
func (d *DashboardController) DeleteOne(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	if !d.containsLocked(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "case not found")
	}

	if err := d.cases.Delete(ctx, id); err != nil {
		d.noticeLocked(noticeLevelError, msgDeleteFailed)
		return err
	}
	d.removeLocked(map[string]struct{}{id: {}})
	d.noticeLocked(noticeLevelInfo, msgDeleted)
	return nil
}

// DeleteSelected deletes every selected case and returns their identifiers.
func (d *DashboardController) DeleteSelected(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return nil, err
	}
	if len(d.selected) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgNoneSelected)
	}

	ids := d.selectedIDsLocked()
	if err := d.cases.Delete(ctx, ids...); err != nil {
		d.noticeLocked(noticeLevelError, msgDeleteFailed)
		return nil, err
	}
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	d.removeLocked(gone)
	d.allSelected = false
	d.noticeLocked(noticeLevelInfo, fmt.Sprintf(msgDeletedMany, len(ids)))
	return ids, nil
}

// SetSelected selects or deselects one case. Any deselection clears the
// all-selected flag.
func (d *DashboardController) SetSelected(id string, selected bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	if !d.containsLocked(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "case not found")
	}
	if selected {
		d.selected[id] = struct{}{}
		return nil
	}
	delete(d.selected, id)
	d.allSelected = false
	return nil
}

// ToggleSelectAll selects every case in the filtered view, or clears the selection.
func (d *DashboardController) ToggleSelectAll(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	d.selected = make(map[string]struct{}, len(d.view))
	d.allSelected = on
	if on {
		for _, rec := range d.view {
			d.selected[rec.ID] = struct{}{}
		}
	}
	return nil
}

// Export fetches the full collection fresh and hands it to the exporter.
func (d *DashboardController) Export(ctx context.Context, format models.ExportFormat) (*models.ExportResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return nil, err
	}

	records, err := d.cases.Fresh(ctx)
	if err != nil {
		d.noticeLocked(noticeLevelError, msgExportFailed)
		return nil, err
	}
	result, err := d.exporter.Export(ctx, records, format)
	if err != nil {
		d.noticeLocked(noticeLevelError, msgExportFailed)
		d.logger.Warn("dashboard export failed", zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}
	d.noticeLocked(noticeLevelInfo, msgExported)
	return result, nil
}

// View returns a snapshot of the derived state.
func (d *DashboardController) View() models.DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()

	view := models.DashboardView{
		State:       d.state,
		Criteria:    d.criteria,
		Cases:       append([]models.CaseRecord(nil), d.view...),
		Metrics:     d.metrics,
		Selected:    d.selectedIDsLocked(),
		AllSelected: d.allSelected,
	}
	if view.Cases == nil {
		view.Cases = []models.CaseRecord{}
	}
	if !d.loadedAt.IsZero() {
		at := d.loadedAt
		view.LoadedAt = &at
	}
	return view
}

// CacheHit reports whether the last load was served from cache.
func (d *DashboardController) CacheHit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cacheHit
}

// Notices returns and clears pending notices.
func (d *DashboardController) Notices() []models.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.notices
	d.notices = nil
	return out
}

func (d *DashboardController) readyLocked() error {
	switch d.state {
	case models.DashboardReady:
		return nil
	case models.DashboardRedirectLogin:
		return appErrors.ErrSessionExpired
	default:
		return appErrors.ErrDashboardNotReady
	}
}

func (d *DashboardController) replaceLocked(records []models.CaseRecord) {
	d.all = append([]models.CaseRecord(nil), records...)
	d.loadedAt = d.now().UTC()
	present := make(map[string]struct{}, len(d.all))
	for _, rec := range d.all {
		present[rec.ID] = struct{}{}
	}
	for id := range d.selected {
		if _, ok := present[id]; !ok {
			delete(d.selected, id)
			d.allSelected = false
		}
	}
	d.deriveLocked()
}

func (d *DashboardController) removeLocked(ids map[string]struct{}) {
	kept := d.all[:0:0]
	for _, rec := range d.all {
		if _, gone := ids[rec.ID]; !gone {
			kept = append(kept, rec)
		}
	}
	d.all = kept
	for id := range ids {
		delete(d.selected, id)
	}
	d.deriveLocked()
}

func (d *DashboardController) deriveLocked() {
	d.view = ApplyFilters(d.all, d.criteria)
	d.metrics = AggregateCases(d.view)
}

func (d *DashboardController) containsLocked(id string) bool {
	for _, rec := range d.all {
		if rec.ID == id {
			return true
		}
	}
	return false
}

func (d *DashboardController) selectedIDsLocked() []string {
	ids := make([]string, 0, len(d.selected))
	for id := range d.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *DashboardController) noticeLocked(level, message string) {
	d.notices = append(d.notices, models.Notice{Level: level, Message: message, At: d.now().UTC()})
}

func (d *DashboardController) resetLocked() {
	d.all = nil
	d.view = nil
	d.metrics = models.CaseMetrics{}
	d.selected = make(map[string]struct{})
	d.allSelected = false
	d.loadedAt = time.Time{}
}
