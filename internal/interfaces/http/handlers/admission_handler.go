package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/cle/internal/application/dto"
	"github.com/turtacn/cle/internal/application/service"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/utils"
)

// AdmissionHandler handles admission checks from the host authorization
// server. Refusals come back as 200 with allowed=false: the decision is the
// payload, not a transport failure.
// AdmissionHandler 处理来自宿主授权服务器的准入检查。拒绝以 200 加 allowed=false
// 返回：决策本身是负载，而非传输失败。
type AdmissionHandler struct {
	app service.LicenseAppService
}

// NewAdmissionHandler creates a new AdmissionHandler.
func NewAdmissionHandler(app service.LicenseAppService) *AdmissionHandler {
	return &AdmissionHandler{app: app}
}

// AllowClient handles POST /api/v1/admission/client.
func (h *AdmissionHandler) AllowClient(c *gin.Context) {
	var req dto.ClientAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, errors.ErrInvalidRequest("request body must be JSON with a client_id field").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		sendError(c, err)
		return
	}

	decision, err := h.app.CheckClient(c.Request.Context(), req.ClientID)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, decision)
}

// AllowIssuer handles POST /api/v1/admission/issuer.
func (h *AdmissionHandler) AllowIssuer(c *gin.Context) {
	var req dto.IssuerAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, errors.ErrInvalidRequest("request body must be JSON with an issuer field").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		sendError(c, err)
		return
	}

	decision, err := h.app.CheckIssuer(c.Request.Context(), req.Issuer)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, decision)
}

// Entitlements handles GET /api/v1/entitlements.
func (h *AdmissionHandler) Entitlements(c *gin.Context) {
	sendSuccess(c, http.StatusOK, h.app.Entitlements(c.Request.Context()))
}
