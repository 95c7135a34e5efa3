package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caselog-api/pkg/response"
)

var exportContentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
	".pdf":  "application/pdf",
}

type exportOpener interface {
	Open(token string) (*os.File, string, error)
}

// ExportHandler streams generated exports behind signed links.
type ExportHandler struct {
	exports exportOpener
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exports exportOpener) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download an export
// @Tags Dashboard
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, filename, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType, ok := exportContentTypes[path.Ext(filename)]
	if !ok {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)),
		"Cache-Control":       "no-store",
	})
}
