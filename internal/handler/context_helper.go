package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caselog-api/internal/middleware"
	"github.com/noah-isme/caselog-api/internal/service"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/response"
)

// dashboardFromContext returns the mounted controller or answers with SESSION_EXPIRED.
func dashboardFromContext(c *gin.Context) (*service.DashboardController, bool) {
	ctrl := middleware.Dashboard(c)
	if ctrl == nil {
		middleware.SessionExpired(c)
		return nil, false
	}
	return ctrl, true
}

// respond writes data with the request's metadata attached.
func respond(c *gin.Context, status int, data interface{}) {
	response.JSON(c, status, data, middleware.ExtractMeta(c))
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
