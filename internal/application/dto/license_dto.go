package dto

import (
	"time"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/pkg/constants"
)

// LoadLicenseRequest 许可证上传请求
type LoadLicenseRequest struct {
	// License is the compact serialized license token.
	License string `json:"license" validate:"required"`
}

// ClientAdmissionRequest 客户端准入检查请求
type ClientAdmissionRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

// IssuerAdmissionRequest 颁发者准入检查请求
type IssuerAdmissionRequest struct {
	Issuer string `json:"issuer" validate:"required"`
}

// LicenseSummary is the API view of one license. The raw token never
// appears here.
// LicenseSummary 是单个许可证的 API 视图。原始令牌绝不出现在其中。
type LicenseSummary struct {
	ID           string     `json:"id"`
	Issuer       string     `json:"issuer"`
	Subject      string     `json:"subject"`
	Status       string     `json:"status"`
	NotBefore    *time.Time `json:"not_before,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	GraceSeconds *int64     `json:"grace_period_seconds,omitempty"`
	ClientLimit  *int64     `json:"client_limit,omitempty"`
	IssuerLimit  *int64     `json:"issuer_limit,omitempty"`
	ValidIssuers []string   `json:"valid_issuers,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	Source       string     `json:"source,omitempty"`
}

// NewLicenseSummary maps a license onto its API view, classifying it against
// now with the given fallback grace period.
func NewLicenseSummary(lic *models.License, now time.Time, fallbackGrace time.Duration) *LicenseSummary {
	s := &LicenseSummary{
		ID:           lic.ID,
		Issuer:       lic.Issuer,
		Subject:      lic.Subject,
		Status:       string(lic.StatusAt(now, fallbackGrace)),
		NotBefore:    lic.NotBefore,
		ExpiresAt:    lic.ExpiresAt,
		ClientLimit:  lic.ClientLimit,
		IssuerLimit:  lic.IssuerLimit,
		ValidIssuers: lic.ValidIssuers,
		IssuedAt:     lic.IssuedAt,
		Source:       lic.Source,
	}
	if lic.GracePeriod != nil {
		secs := int64(lic.GracePeriod.Seconds())
		s.GraceSeconds = &secs
	}
	return s
}

// LicenseListResponse 许可证列表响应
type LicenseListResponse struct {
	Licenses []*LicenseSummary `json:"licenses"`
	Count    int               `json:"count"`
}

// ActiveLicenseResponse carries the folded effective grant. Present is false
// when no license is relevant and the deployment runs on free-tier limits.
// ActiveLicenseResponse 携带折叠后的有效授权。当没有相关许可证、部署以免费层
// 限制运行时，Present 为 false。
type ActiveLicenseResponse struct {
	Present bool            `json:"present"`
	License *LicenseSummary `json:"license,omitempty"`
}

// AdmissionResponse 准入决策响应
type AdmissionResponse struct {
	Allowed        bool      `json:"allowed"`
	Reason         string    `json:"reason"`
	Principal      string    `json:"principal"`
	EffectiveLimit *int64    `json:"effective_limit,omitempty"`
	KnownCount     int64     `json:"known_count"`
	DecidedAt      time.Time `json:"decided_at"`
}

// NewAdmissionResponse maps an admission decision onto its API view.
func NewAdmissionResponse(d *models.AdmissionDecision) *AdmissionResponse {
	return &AdmissionResponse{
		Allowed:        d.Allowed,
		Reason:         string(d.Reason),
		Principal:      d.Principal,
		EffectiveLimit: d.EffectiveLimit,
		KnownCount:     d.KnownCount,
		DecidedAt:      d.DecidedAt,
	}
}

// EntitlementsResponse 生效授权快照响应
type EntitlementsResponse struct {
	Tier                  string     `json:"tier"`
	Licensed              bool       `json:"licensed"`
	ClientLimit           *int64     `json:"client_limit,omitempty"`
	IssuerLimit           *int64     `json:"issuer_limit,omitempty"`
	ValidIssuers          []string   `json:"valid_issuers,omitempty"`
	GuaranteedClientLimit *int64     `json:"guaranteed_client_limit,omitempty"`
	KnownClients          int64      `json:"known_clients"`
	KnownIssuers          int64      `json:"known_issuers"`
	ContributingLicenses  []string   `json:"contributing_licenses,omitempty"`
	GraceDeadline         *time.Time `json:"grace_deadline,omitempty"`
	EvaluatedAt           time.Time  `json:"evaluated_at"`
}

// NewEntitlementsResponse maps an entitlements snapshot onto its API view.
func NewEntitlementsResponse(e *models.Entitlements) *EntitlementsResponse {
	return &EntitlementsResponse{
		Tier:                  string(e.Tier),
		Licensed:              e.Tier != constants.TierFree,
		ClientLimit:           e.ClientLimit,
		IssuerLimit:           e.IssuerLimit,
		ValidIssuers:          e.ValidIssuers,
		GuaranteedClientLimit: e.GuaranteedClientLimit,
		KnownClients:          e.KnownClients,
		KnownIssuers:          e.KnownIssuers,
		ContributingLicenses:  e.ContributingLicenses,
		GraceDeadline:         e.GraceDeadline,
		EvaluatedAt:           e.EvaluatedAt,
	}
}
