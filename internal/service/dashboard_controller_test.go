package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
)

type fakeCaseSource struct {
	mu         sync.Mutex
	records    []models.CaseRecord
	listErr    error
	freshErr   error
	deleteErr  error
	deleted    [][]string
	listCalls  int
	freshCalls int
}

func (f *fakeCaseSource) List(context.Context) ([]models.CaseRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, false, f.listErr
	}
	return append([]models.CaseRecord(nil), f.records...), false, nil
}

func (f *fakeCaseSource) Fresh(context.Context) ([]models.CaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freshCalls++
	if f.freshErr != nil {
		return nil, f.freshErr
	}
	return append([]models.CaseRecord(nil), f.records...), nil
}

func (f *fakeCaseSource) Delete(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ids)
	return nil
}

type fakeSessions struct{ valid bool }

func (f fakeSessions) Validate(token, username string) bool {
	return f.valid && token != "" && username != ""
}

type fakeExporter struct {
	got []models.CaseRecord
	err error
}

func (f *fakeExporter) Export(_ context.Context, records []models.CaseRecord, format models.ExportFormat) (*models.ExportResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = records
	return &models.ExportResult{Format: format, Rows: len(records)}, nil
}

var errStoreDown = appErrors.Wrap(errors.New("dial tcp: refused"), appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load cases")

func mountedController(t *testing.T, src *fakeCaseSource) *DashboardController {
	t.Helper()
	ctrl := NewDashboardController("admin", src, fakeSessions{valid: true}, &fakeExporter{}, nil)
	require.NoError(t, ctrl.Mount(context.Background(), "tok", "admin"))
	return ctrl
}

func TestDashboardMountLoadsAndDerivesMetrics(t *testing.T) {
	src := &fakeCaseSource{records: []models.CaseRecord{
		NormalizeCase(models.RawCase{"case_unique_id": "a", "caseCode": "أحمر"}),
		NormalizeCase(models.RawCase{"case_unique_id": "b", "caseCode": "yellow"}),
		NormalizeCase(models.RawCase{"case_unique_id": "c", "caseCode": "أصفر"}),
	}}
	ctrl := NewDashboardController("admin", src, fakeSessions{valid: true}, &fakeExporter{}, nil)
	assert.Equal(t, models.DashboardUninitialized, ctrl.State())

	require.NoError(t, ctrl.Mount(context.Background(), "tok", "admin"))

	view := ctrl.View()
	assert.Equal(t, models.DashboardReady, view.State)
	assert.Equal(t, models.CaseMetrics{Total: 3, Red: 1, Yellow: 2}, view.Metrics)
	assert.Len(t, view.Cases, 3)
	assert.NotNil(t, view.LoadedAt)
}

func TestDashboardMountInvalidSessionRedirects(t *testing.T) {
	src := &fakeCaseSource{}
	ctrl := NewDashboardController("admin", src, fakeSessions{valid: false}, &fakeExporter{}, nil)

	err := ctrl.Mount(context.Background(), "tok", "admin")
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
	assert.Equal(t, models.DashboardRedirectLogin, ctrl.State())
	assert.Zero(t, src.listCalls)
}

func TestDashboardMountFailureEntersFailedState(t *testing.T) {
	src := &fakeCaseSource{listErr: errStoreDown}
	ctrl := NewDashboardController("admin", src, fakeSessions{valid: true}, &fakeExporter{}, nil)

	err := ctrl.Mount(context.Background(), "tok", "admin")
	require.Error(t, err)
	assert.Equal(t, models.DashboardFailed, ctrl.State())
	notices := ctrl.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "error", notices[0].Level)
	assert.Empty(t, ctrl.Notices())

	src.listErr = nil
	require.NoError(t, ctrl.Mount(context.Background(), "tok", "admin"))
	assert.Equal(t, models.DashboardReady, ctrl.State())
}

func TestDashboardRemountDoesNotRefetch(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)
	require.NoError(t, ctrl.Mount(context.Background(), "tok", "admin"))
	assert.Equal(t, 1, src.listCalls)
}

func TestDashboardSetCriteriaRederivesWithoutFetch(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)

	require.NoError(t, ctrl.SetCriteria(models.FilterCriteria{Severity: "أحمر"}))
	view := ctrl.View()
	assert.Equal(t, []string{"1"}, ids(view.Cases))
	assert.Equal(t, models.CaseMetrics{Total: 1, Red: 1}, view.Metrics)
	assert.Equal(t, models.SortByDate, view.Criteria.SortBy)
	assert.Equal(t, 1, src.listCalls)
	assert.Zero(t, src.freshCalls)
}

func TestDashboardOperationsRequireReady(t *testing.T) {
	ctrl := NewDashboardController("admin", &fakeCaseSource{}, fakeSessions{valid: true}, &fakeExporter{}, nil)
	assert.ErrorIs(t, ctrl.SetCriteria(models.FilterCriteria{}), appErrors.ErrDashboardNotReady)
	assert.ErrorIs(t, ctrl.ToggleSelectAll(true), appErrors.ErrDashboardNotReady)
	_, err := ctrl.Export(context.Background(), models.ExportFormatXLSX)
	assert.ErrorIs(t, err, appErrors.ErrDashboardNotReady)
}

func TestDashboardDeleteOneRemovesLocally(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)
	require.NoError(t, ctrl.SetSelected("1", true))

	require.NoError(t, ctrl.DeleteOne(context.Background(), "1"))

	view := ctrl.View()
	assert.ElementsMatch(t, []string{"2", "3"}, ids(view.Cases))
	assert.Empty(t, view.Selected)
	assert.Equal(t, [][]string{{"1"}}, src.deleted)
	assert.Zero(t, src.freshCalls)
	assert.Equal(t, "success", ctrl.Notices()[0].Level)
}

func TestDashboardDeleteFailureLeavesStateUntouched(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)
	require.NoError(t, ctrl.SetSelected("1", true))
	before := ctrl.View()

	src.deleteErr = errStoreDown
	require.Error(t, ctrl.DeleteOne(context.Background(), "1"))
	_, err := ctrl.DeleteSelected(context.Background())
	require.Error(t, err)

	after := ctrl.View()
	assert.Equal(t, before, after)
	assert.Len(t, ctrl.Notices(), 2)
}

func TestDashboardDeleteUnknownCase(t *testing.T) {
	ctrl := mountedController(t, &fakeCaseSource{records: exportRecords()})
	err := ctrl.DeleteOne(context.Background(), "missing")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDashboardSelectAllSelectsEveryVisibleCase(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)
	require.NoError(t, ctrl.SetCriteria(models.FilterCriteria{RescuerName: "a"}))

	require.NoError(t, ctrl.ToggleSelectAll(true))
	view := ctrl.View()
	assert.True(t, view.AllSelected)
	assert.Equal(t, []string{"1", "3"}, view.Selected)

	require.NoError(t, ctrl.SetSelected("3", false))
	view = ctrl.View()
	assert.False(t, view.AllSelected)
	assert.Equal(t, []string{"1"}, view.Selected)

	require.NoError(t, ctrl.ToggleSelectAll(false))
	assert.Empty(t, ctrl.View().Selected)
}

func TestDashboardDeleteSelected(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)

	_, err := ctrl.DeleteSelected(context.Background())
	require.Error(t, err)

	require.NoError(t, ctrl.ToggleSelectAll(true))
	require.NoError(t, ctrl.SetSelected("2", false))
	deleted, err := ctrl.DeleteSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, deleted)

	view := ctrl.View()
	assert.Equal(t, []string{"2"}, ids(view.Cases))
	assert.False(t, view.AllSelected)
	assert.Empty(t, view.Selected)
	assert.Equal(t, 1, view.Metrics.Total)
}

func TestDashboardRefresh(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)
	require.NoError(t, ctrl.SetSelected("2", true))

	src.records = exportRecords()[:1]
	require.NoError(t, ctrl.Refresh(context.Background()))
	view := ctrl.View()
	assert.Equal(t, []string{"1"}, ids(view.Cases))
	assert.Empty(t, view.Selected)

	src.freshErr = errStoreDown
	require.Error(t, ctrl.Refresh(context.Background()))
	assert.Equal(t, view.Cases, ctrl.View().Cases)
	assert.Equal(t, models.DashboardReady, ctrl.State())
}

func TestDashboardExportUsesFreshFullCollection(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	exp := &fakeExporter{}
	ctrl := NewDashboardController("admin", src, fakeSessions{valid: true}, exp, nil)
	require.NoError(t, ctrl.Mount(context.Background(), "tok", "admin"))
	require.NoError(t, ctrl.SetCriteria(models.FilterCriteria{Severity: "red"}))

	res, err := ctrl.Export(context.Background(), models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Len(t, exp.got, 3)
	assert.Equal(t, 1, src.freshCalls)

	exp.err = errors.New("disk full")
	_, err = ctrl.Export(context.Background(), models.ExportFormatCSV)
	require.Error(t, err)
}

func TestDashboardRegistryKeepsControllerPerUser(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	reg := NewDashboardRegistry(src, fakeSessions{valid: true}, &fakeExporter{}, nil, nil)

	a1, err := reg.Mount(context.Background(), "tok", "admin")
	require.NoError(t, err)
	a2, err := reg.Mount(context.Background(), "tok", "admin")
	require.NoError(t, err)
	b, err := reg.Mount(context.Background(), "tok", "other")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, reg.Len())

	_, err = reg.Mount(context.Background(), "", "admin")
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
	assert.Equal(t, 1, reg.Len())
}

func TestDashboardConcurrentAccess(t *testing.T) {
	src := &fakeCaseSource{records: exportRecords()}
	ctrl := mountedController(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = ctrl.SetSelected("1", i%2 == 0)
			_ = ctrl.SetCriteria(models.FilterCriteria{SortDirection: models.SortAsc})
			_ = ctrl.View()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, models.DashboardReady, ctrl.State())
}
