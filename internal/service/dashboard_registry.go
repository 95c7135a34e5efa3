package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
)

// DashboardRegistry keeps one DashboardController per admin so selection and
// filter state survive across requests.
type DashboardRegistry struct {
	mu          sync.Mutex
	controllers map[string]*DashboardController

	cases    caseSource
	sessions sessionValidator
	exporter caseExporter
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewDashboardRegistry constructs an empty registry.
func NewDashboardRegistry(cases caseSource, sessions sessionValidator, exporter caseExporter, metrics *MetricsService, logger *zap.Logger) *DashboardRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardRegistry{
		controllers: make(map[string]*DashboardController),
		cases:       cases,
		sessions:    sessions,
		exporter:    exporter,
		metrics:     metrics,
		logger:      logger,
	}
}

// Mount returns the admin's controller after validating the session pair. An
// invalid session drops any state held for that admin.
func (r *DashboardRegistry) Mount(ctx context.Context, token, username string) (*DashboardController, error) {
	if username == "" || !r.sessions.Validate(token, username) {
		r.Forget(username)
		return nil, appErrors.ErrSessionExpired
	}

	r.mu.Lock()
	ctrl, ok := r.controllers[username]
	if !ok {
		ctrl = NewDashboardController(username, r.cases, r.sessions, r.exporter, r.logger)
		r.controllers[username] = ctrl
		r.metrics.SetDashboardSessions(len(r.controllers))
	}
	r.mu.Unlock()

	if err := ctrl.Mount(ctx, token, username); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Forget discards the controller held for username.
func (r *DashboardRegistry) Forget(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.controllers[username]; ok {
		delete(r.controllers, username)
		r.metrics.SetDashboardSessions(len(r.controllers))
	}
}

// Len returns the number of live controllers.
func (r *DashboardRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
