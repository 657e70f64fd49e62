package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LicenseClaims represents the JWT claims carried by a license token.
// It embeds the standard jwt.RegisteredClaims and adds the custom entitlement fields.
// LicenseClaims 代表许可令牌携带的 JWT 声明。
// 它嵌入了标准的 jwt.RegisteredClaims，并添加了自定义的授权字段。
type LicenseClaims struct {
	jwt.RegisteredClaims

	// ClientLimit is the maximum number of distinct clients the grant admits.
	// ClientLimit 是该授权许可准入的不同客户端的最大数量。
	ClientLimit *int64 `json:"client_limit,omitempty"`

	// IssuerLimit is the maximum number of distinct token issuers the grant admits.
	// IssuerLimit 是该授权许可准入的不同令牌颁发者的最大数量。
	IssuerLimit *int64 `json:"issuer_limit,omitempty"`

	// ValidIssuers whitelists the acceptable token issuers. An absent or
	// empty list accepts all issuers.
	// ValidIssuers 是可接受令牌颁发者的白名单。缺失或为空的列表表示接受所有颁发者。
	ValidIssuers []string `json:"valid_issuers,omitempty"`

	// GracePeriodDays extends enforcement past expiry by whole days.
	// GracePeriodDays 将执行期按整天数延长至过期之后。
	GracePeriodDays *int64 `json:"grace_period_days,omitempty"`
}

// ToLicense maps verified claims onto a License domain model. Epoch-second
// claims become time.Time values, the day-denominated grace claim becomes a
// duration, and absent optional claims stay nil.
// ToLicense 将已验证的声明映射为 License 领域模型。以秒为单位的纪元时间声明
// 转换为 time.Time 值，以天为单位的宽限声明转换为时长，缺失的可选声明保持为 nil。
//
// Parameters:
//   - raw: The compact serialized token the claims were verified from.
//   - source: Where the token was ingested from.
//
// Returns:
//   - *License: The mapped license.
func (c *LicenseClaims) ToLicense(raw, source string) *License {
	lic := NewLicense(c.ID, c.Issuer, c.Subject)
	lic.Raw = raw
	lic.Source = source

	if c.NotBefore != nil {
		nb := c.NotBefore.Time.UTC()
		lic.NotBefore = &nb
	}
	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.Time.UTC()
		lic.ExpiresAt = &exp
	}
	if c.IssuedAt != nil {
		lic.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.GracePeriodDays != nil {
		gp := time.Duration(*c.GracePeriodDays) * 24 * time.Hour
		lic.GracePeriod = &gp
	}
	if c.ClientLimit != nil {
		cl := *c.ClientLimit
		lic.ClientLimit = &cl
	}
	if c.IssuerLimit != nil {
		il := *c.IssuerLimit
		lic.IssuerLimit = &il
	}
	if len(c.ValidIssuers) > 0 {
		lic.ValidIssuers = append([]string(nil), c.ValidIssuers...)
	}

	return lic
}
