package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/cle/internal/application/dto"
	"github.com/turtacn/cle/internal/application/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/utils"
)

// LicenseHandler handles HTTP requests for license ingestion and inspection.
type LicenseHandler struct {
	app service.LicenseAppService
}

// NewLicenseHandler creates a new LicenseHandler.
func NewLicenseHandler(app service.LicenseAppService) *LicenseHandler {
	return &LicenseHandler{app: app}
}

// Upload handles POST /api/v1/licenses.
// 处理许可证上传请求。
func (h *LicenseHandler) Upload(c *gin.Context) {
	var req dto.LoadLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, errors.ErrInvalidRequest("request body must be JSON with a license field").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		sendError(c, err)
		return
	}

	summary, err := h.app.LoadLicense(c.Request.Context(), req.License, constants.LicenseSourceAPI)
	if err != nil {
		sendError(c, err)
		return
	}

	sendSuccess(c, http.StatusCreated, summary)
}

// List handles GET /api/v1/licenses.
// 处理许可证列表查询请求。
func (h *LicenseHandler) List(c *gin.Context) {
	sendSuccess(c, http.StatusOK, h.app.ListLicenses(c.Request.Context()))
}

// Active handles GET /api/v1/licenses/active. An absent effective license is
// a normal answer, not an error status.
// 处理有效许可证查询请求。不存在有效许可证是正常应答，而非错误状态。
func (h *LicenseHandler) Active(c *gin.Context) {
	sendSuccess(c, http.StatusOK, h.app.ActiveLicense(c.Request.Context()))
}
