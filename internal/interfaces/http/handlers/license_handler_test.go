package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appservice "github.com/turtacn/cle/internal/application/service"
	"github.com/turtacn/cle/internal/domain/models"
	domainService "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/internal/domain/service/mocks"
	"github.com/turtacn/cle/internal/interfaces/http/handlers"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

type handlerFixture struct {
	engine    *gin.Engine
	validator *mocks.MockLicenseValidator
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNoopLogger()

	manager := domainService.NewLicenseManager(log, nil, constants.DefaultGracePeriod, 0)
	checker := domainService.NewLicenseChecker(manager, log,
		constants.DefaultClientToleranceFactor,
		constants.DefaultFreeTierClientLimit,
		constants.DefaultGracePeriod,
		domainService.CheckerDeps{},
	)

	validator := &mocks.MockLicenseValidator{}
	app := appservice.NewLicenseAppService(validator, checker, manager,
		constants.DefaultGracePeriod, appservice.AppDeps{}, log)

	licenseHandler := handlers.NewLicenseHandler(app)
	admissionHandler := handlers.NewAdmissionHandler(app)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	v1.POST("/licenses", licenseHandler.Upload)
	v1.GET("/licenses", licenseHandler.List)
	v1.GET("/licenses/active", licenseHandler.Active)
	v1.POST("/admission/client", admissionHandler.AllowClient)
	v1.POST("/admission/issuer", admissionHandler.AllowIssuer)
	v1.GET("/entitlements", admissionHandler.Entitlements)

	return &handlerFixture{engine: engine, validator: validator}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func testClaims(id string) *models.LicenseClaims {
	now := time.Now()
	limit := int64(25)
	return &models.LicenseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    "https://licensing.example.com",
			Subject:   "acme-corp",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(90 * 24 * time.Hour)),
		},
		ClientLimit: &limit,
	}
}

func TestLicenseUpload(t *testing.T) {
	f := newHandlerFixture(t)
	f.validator.On("Validate", mock.Anything, "valid-token").Return(testClaims("lic-1"), nil)

	rec := f.do(t, http.MethodPost, "/api/v1/licenses", gin.H{"license": "valid-token"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "lic-1", resp.Data.ID)
	assert.Equal(t, string(constants.LicenseStatusActive), resp.Data.Status)
}

func TestLicenseUpload_InvalidToken(t *testing.T) {
	f := newHandlerFixture(t)
	f.validator.On("Validate", mock.Anything, "bad-token").Return(nil, errors.ErrInvalidLicense())

	rec := f.do(t, http.MethodPost, "/api/v1/licenses", gin.H{"license": "bad-token"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(constants.ErrCodeInvalidLicense), resp.Error.Code)
}

func TestLicenseUpload_MissingBody(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/licenses", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLicenseListAndActive(t *testing.T) {
	f := newHandlerFixture(t)
	f.validator.On("Validate", mock.Anything, "valid-token").Return(testClaims("lic-1"), nil)

	rec := f.do(t, http.MethodGet, "/api/v1/licenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/v1/licenses", gin.H{"license": "valid-token"}).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/licenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.NotContains(t, rec.Body.String(), "valid-token", "the raw token never leaves the service")

	rec = f.do(t, http.MethodGet, "/api/v1/licenses/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"present":true`)
}

func TestActiveLicense_AbsentIsNormal(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/licenses/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"present":false`)
}

func TestClientAdmissionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	// Free tier: limit 2 with tolerance 1.3 refuses the third client.
	for _, clientID := range []string{"c1", "c2"} {
		rec := f.do(t, http.MethodPost, "/api/v1/admission/client", gin.H{"client_id": clientID})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"allowed":true`)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/admission/client", gin.H{"client_id": "c3"})
	require.Equal(t, http.StatusOK, rec.Code, "a refusal is still a 200 decision")
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	rec = f.do(t, http.MethodPost, "/api/v1/admission/client", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssuerAdmissionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/admission/issuer",
		gin.H{"issuer": "https://licensing.example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":true`)
}

func TestEntitlementsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/entitlements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier":"free"`)
}
