package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/caselog-api/internal/handler"
	"github.com/noah-isme/caselog-api/internal/middleware"
	"github.com/noah-isme/caselog-api/internal/models"
	"github.com/noah-isme/caselog-api/internal/repository"
	"github.com/noah-isme/caselog-api/internal/service"
	"github.com/noah-isme/caselog-api/pkg/config"
	"github.com/noah-isme/caselog-api/pkg/export"
	"github.com/noah-isme/caselog-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/caselog-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/caselog-api/pkg/middleware/requestid"
	"github.com/noah-isme/caselog-api/pkg/storage"
)

// Dependencies are the process-wide clients the router is built from. Redis may be nil.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
}

// NewRouter wires repositories, services and handlers into a gin engine.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	metrics := service.NewMetricsService()
	validate := service.NewCaseValidator()

	caseRepo := repository.NewCaseRepository(deps.DB)
	userRepo := repository.NewUserRepository(deps.DB)
	cacheRepo := repository.NewCacheRepository(deps.Redis)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cases.CacheTTL, logr, deps.Redis != nil)
	caseSvc := service.NewCaseService(caseRepo, cacheSvc, metrics, logr, cfg.Cases.CacheTTL)
	formSvc := service.NewCaseFormService(caseSvc, validate, logr)
	sessions := service.NewSessionTokenCodec(cfg.Session.Secret, cfg.Session.TTL)
	authSvc := service.NewAuthService(userRepo, sessions, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	files, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Export.SignedURLSecret, cfg.Export.SignedURLTTL)
	renderers := map[models.ExportFormat]service.DatasetRenderer{}
	if cfg.Export.PDFFontPath != "" {
		renderers[models.ExportFormatPDF] = export.NewPDFExporter(cfg.Export.PDFFontPath)
	} else {
		logr.Info("pdf export disabled, EXPORT_PDF_FONT not set")
	}
	exportSvc := service.NewExportService(files, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, metrics, logr, renderers)
	dashboards := service.NewDashboardRegistry(caseSvc, sessions, exportSvc, metrics, logr)

	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	caseHandler := handler.NewCaseHandler(formSvc, caseSvc)
	dashboardHandler := handler.NewDashboardHandler(validate)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, caseRepo)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	jwt := middleware.JWT(authSvc)

	api.GET("/reference", caseHandler.Reference)
	api.POST("/cases", middleware.Audit(userRepo, models.AuditActionCaseCreate, "cases"), caseHandler.Submit)
	api.GET("/cases/:id", jwt, caseHandler.Get)
	api.GET("/export/:token", exportHandler.Download)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/session", authHandler.Session)
	auth.GET("/me", jwt, authHandler.Me)

	dash := api.Group("/dashboard", jwt, middleware.SessionGate(dashboards))
	dash.GET("", dashboardHandler.Get)
	dash.POST("/refresh", dashboardHandler.Refresh)
	dash.PUT("/selection", dashboardHandler.SelectAll)
	dash.PUT("/selection/:id", dashboardHandler.Select)
	dash.DELETE("/cases/:id", middleware.Audit(userRepo, models.AuditActionCaseDelete, "cases"), dashboardHandler.DeleteOne)
	dash.DELETE("/cases", middleware.Audit(userRepo, models.AuditActionCaseDelete, "cases"), dashboardHandler.DeleteSelected)
	dash.POST("/export", middleware.Audit(userRepo, models.AuditActionCasesExport, "cases"), dashboardHandler.Export)

	return r, nil
}
