// Package models defines the domain models for the CLE License Enforcement Service.
// This file contains the License domain model with business logic.
package models

import (
	"time"

	"github.com/turtacn/cle/pkg/constants"
)

// License represents a verified entitlement grant in the licensing system. It carries
// the temporal window in which it applies and the usage limits it confers. Optional
// fields are pointers: a nil limit means unlimited, a nil expiry means perpetual.
// License 代表许可系统中一个已验证的授权凭证。它包含其生效的时间窗口以及所授予的用量限制。
// 可选字段使用指针：nil 限制表示无限制，nil 过期时间表示永久有效。
type License struct {
	// ID is the unique identifier of the license, taken from the token's jti claim.
	// ID 是许可证的唯一标识符，取自令牌的 jti 声明。
	ID string `json:"id" db:"id"`

	// Issuer identifies the licensing authority that signed the token.
	// Issuer 标识签署令牌的许可颁发机构。
	Issuer string `json:"issuer" db:"issuer"`

	// Subject identifies the licensee (account or deployment) the grant applies to.
	// Subject 标识该授权适用的被许可方（账户或部署）。
	Subject string `json:"subject" db:"subject"`

	// NotBefore is the instant the license window opens. A nil value means the
	// license has been valid since the beginning of time.
	// NotBefore 是许可窗口开启的时刻。nil 值表示该许可证自始有效。
	NotBefore *time.Time `json:"not_before,omitempty" db:"not_before"`

	// ExpiresAt is the instant the license window closes. A nil value means the
	// license never expires.
	// ExpiresAt 是许可窗口关闭的时刻。nil 值表示该许可证永不过期。
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	// GracePeriod extends enforcement past ExpiresAt. A nil value means the
	// token carried no grace claim and the configured default applies.
	// GracePeriod 将执行期延长至 ExpiresAt 之后。nil 值表示令牌未携带宽限声明，
	// 此时应用配置的默认值。
	GracePeriod *time.Duration `json:"grace_period,omitempty" db:"grace_period"`

	// ClientLimit caps how many distinct clients may be admitted. A nil value
	// means unlimited clients.
	// ClientLimit 限制可准入的不同客户端数量。nil 值表示客户端数量无限制。
	ClientLimit *int64 `json:"client_limit,omitempty" db:"client_limit"`

	// IssuerLimit caps how many distinct token issuers may be admitted. A nil
	// value means unlimited issuers.
	// IssuerLimit 限制可准入的不同令牌颁发者数量。nil 值表示颁发者数量无限制。
	IssuerLimit *int64 `json:"issuer_limit,omitempty" db:"issuer_limit"`

	// ValidIssuers whitelists the acceptable token issuers. An absent or
	// empty list accepts all issuers.
	// ValidIssuers 是可接受令牌颁发者的白名单。缺失或为空的列表表示接受所有颁发者。
	ValidIssuers []string `json:"valid_issuers,omitempty" db:"valid_issuers"`

	// IssuedAt is the instant the license token was minted (iat claim).
	// IssuedAt 是许可令牌的签发时刻（iat 声明）。
	IssuedAt time.Time `json:"issued_at" db:"issued_at"`

	// Raw is the compact serialized token the license was parsed from. It is
	// masked in logs and API responses.
	// Raw 是解析出此许可证的紧凑序列化令牌。在日志和 API 响应中会被掩码处理。
	Raw string `json:"-" db:"raw_token"`

	// Source records where the license was ingested from (file path, api, database).
	// Source 记录许可证的摄取来源（文件路径、API、数据库）。
	Source string `json:"source,omitempty" db:"source"`

	// CreatedAt is the timestamp when the license record was first stored.
	// CreatedAt 是许可证记录首次存储的时间戳。
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp when the license record was last updated.
	// UpdatedAt 是许可证记录最后更新的时间戳。
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewLicense creates a new License instance with the identity fields set.
// It automatically sets the CreatedAt and UpdatedAt fields to the current UTC time.
// NewLicense 创建一个设置了身份字段的新 License 实例。
// 它会自动将 CreatedAt 和 UpdatedAt 字段设置为当前的 UTC 时间。
//
// Parameters:
//   - id: The unique license ID (jti).
//   - issuer: The licensing authority.
//   - subject: The licensee.
//
// Returns:
//   - *License: A pointer to the newly created License.
func NewLicense(id, issuer, subject string) *License {
	now := time.Now().UTC()
	return &License{
		ID:        id,
		Issuer:    issuer,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActiveAt reports whether the license window covers the given instant.
// The window opens at NotBefore inclusive and closes at ExpiresAt exclusive;
// a nil bound is unbounded on that side.
// IsActiveAt 报告许可窗口是否覆盖给定时刻。
// 窗口自 NotBefore（含）开启，至 ExpiresAt（不含）关闭；nil 边界表示该侧无界。
//
// Parameters:
//   - now: The instant to classify against.
//
// Returns:
//   - bool: True if the license is active at the instant.
func (l *License) IsActiveAt(now time.Time) bool {
	if l.NotBefore != nil && now.Before(*l.NotBefore) {
		return false
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return false
	}
	return true
}

// IsFutureAt reports whether the license window has not opened yet.
// IsFutureAt 报告许可窗口是否尚未开启。
//
// Returns:
//   - bool: True if NotBefore is set and lies after the instant.
func (l *License) IsFutureAt(now time.Time) bool {
	return l.NotBefore != nil && now.Before(*l.NotBefore)
}

// EffectiveGracePeriod returns the grace period carried by the token, or the
// supplied fallback when the token carried none.
// EffectiveGracePeriod 返回令牌携带的宽限期；若令牌未携带，则返回给定的回退值。
//
// Parameters:
//   - fallback: The grace period to apply when the license carries none.
//
// Returns:
//   - time.Duration: The effective grace period.
func (l *License) EffectiveGracePeriod(fallback time.Duration) time.Duration {
	if l.GracePeriod != nil {
		return *l.GracePeriod
	}
	return fallback
}

// GraceDeadlineAt returns the instant the grace window closes, or nil when the
// license never expires.
// GraceDeadlineAt 返回宽限窗口关闭的时刻；若许可证永不过期则返回 nil。
//
// Parameters:
//   - fallbackGrace: The grace period applied when the license carries none.
//
// Returns:
//   - *time.Time: The grace deadline, or nil for perpetual licenses.
func (l *License) GraceDeadlineAt(fallbackGrace time.Duration) *time.Time {
	if l.ExpiresAt == nil {
		return nil
	}
	deadline := l.ExpiresAt.Add(l.EffectiveGracePeriod(fallbackGrace))
	return &deadline
}

// IsInGraceAt reports whether the license has expired but the instant still
// falls inside its grace window. Perpetual licenses are never in grace.
// IsInGraceAt 报告许可证是否已过期但给定时刻仍处于其宽限窗口内。
// 永久许可证永远不会进入宽限期。
//
// Parameters:
//   - now: The instant to classify against.
//   - fallbackGrace: The grace period applied when the license carries none.
//
// Returns:
//   - bool: True if the license is expired but within grace.
func (l *License) IsInGraceAt(now time.Time, fallbackGrace time.Duration) bool {
	if l.ExpiresAt == nil || l.IsFutureAt(now) || l.IsActiveAt(now) {
		return false
	}
	deadline := l.GraceDeadlineAt(fallbackGrace)
	return now.Before(*deadline)
}

// StatusAt classifies the license against the given instant.
// StatusAt 根据给定时刻对许可证进行分类。
//
// Parameters:
//   - now: The instant to classify against.
//   - fallbackGrace: The grace period applied when the license carries none.
//
// Returns:
//   - constants.LicenseStatus: One of future, active, in_grace, expired.
func (l *License) StatusAt(now time.Time, fallbackGrace time.Duration) constants.LicenseStatus {
	switch {
	case l.IsFutureAt(now):
		return constants.LicenseStatusFuture
	case l.IsActiveAt(now):
		return constants.LicenseStatusActive
	case l.IsInGraceAt(now, fallbackGrace):
		return constants.LicenseStatusInGrace
	default:
		return constants.LicenseStatusExpired
	}
}

// IsExpiringSoonAt reports whether an active license will expire within the
// given warning window. Perpetual and already-expired licenses never match.
// IsExpiringSoonAt 报告一个处于活动状态的许可证是否将在给定的预警窗口内过期。
// 永久许可证和已过期许可证永远不匹配。
//
// Parameters:
//   - now: The instant to evaluate at.
//   - window: How far ahead of expiry warnings start.
//
// Returns:
//   - bool: True if the license expires within the window.
func (l *License) IsExpiringSoonAt(now time.Time, window time.Duration) bool {
	if l.ExpiresAt == nil || !l.IsActiveAt(now) {
		return false
	}
	return l.ExpiresAt.Sub(now) <= window
}

// TimeUntilExpiryAt returns the remaining duration until the license expires at
// the given instant. It returns 0 for expired licenses and a negative result
// never occurs; perpetual licenses report the maximum duration.
// TimeUntilExpiryAt 返回在给定时刻距许可证过期的剩余时间。
// 已过期的许可证返回 0，不会出现负值；永久许可证返回最大时长。
//
// Returns:
//   - time.Duration: The remaining time until expiry.
func (l *License) TimeUntilExpiryAt(now time.Time) time.Duration {
	if l.ExpiresAt == nil {
		return time.Duration(1<<63 - 1)
	}
	remaining := l.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StartsBefore reports whether this license's window opens strictly before the
// other's. A nil NotBefore sorts first, treated as the beginning of time; two
// nil NotBefore values compare equal.
// StartsBefore 报告此许可证的窗口是否严格早于另一个许可证开启。
// nil 的 NotBefore 排在最前，视为时间的起点；两个 nil 的 NotBefore 视为相等。
//
// Parameters:
//   - other: The license to compare against.
//
// Returns:
//   - bool: True if this license starts strictly before the other.
func (l *License) StartsBefore(other *License) bool {
	if l.NotBefore == nil {
		return other.NotBefore != nil
	}
	if other.NotBefore == nil {
		return false
	}
	return l.NotBefore.Before(*other.NotBefore)
}

// Clone returns a deep copy of the license. Pointer fields and the issuer
// slice are re-allocated so the copy shares no mutable state with the original.
// Clone 返回许可证的深拷贝。指针字段和颁发者切片都会重新分配，
// 因此副本与原始对象不共享任何可变状态。
//
// Returns:
//   - *License: An independent copy of the license.
func (l *License) Clone() *License {
	if l == nil {
		return nil
	}

	clone := *l

	if l.NotBefore != nil {
		nb := *l.NotBefore
		clone.NotBefore = &nb
	}
	if l.ExpiresAt != nil {
		exp := *l.ExpiresAt
		clone.ExpiresAt = &exp
	}
	if l.GracePeriod != nil {
		gp := *l.GracePeriod
		clone.GracePeriod = &gp
	}
	if l.ClientLimit != nil {
		cl := *l.ClientLimit
		clone.ClientLimit = &cl
	}
	if l.IssuerLimit != nil {
		il := *l.IssuerLimit
		clone.IssuerLimit = &il
	}
	if l.ValidIssuers != nil {
		clone.ValidIssuers = make([]string, len(l.ValidIssuers))
		copy(clone.ValidIssuers, l.ValidIssuers)
	}

	return &clone
}

// ToMap converts the License struct to a map[string]interface{} for flexible serialization.
// ToMap 将 License 结构体转换为 map[string]interface{} 以实现灵活的序列化。
//
// Returns:
//   - map[string]interface{}: A map representation of the license.
func (l *License) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":      l.ID,
		"issuer":  l.Issuer,
		"subject": l.Subject,
	}

	if l.NotBefore != nil {
		m["not_before"] = l.NotBefore.Unix()
	}
	if l.ExpiresAt != nil {
		m["expires_at"] = l.ExpiresAt.Unix()
	}
	if l.GracePeriod != nil {
		m["grace_period_seconds"] = int64(l.GracePeriod.Seconds())
	}
	if l.ClientLimit != nil {
		m["client_limit"] = *l.ClientLimit
	}
	if l.IssuerLimit != nil {
		m["issuer_limit"] = *l.IssuerLimit
	}
	if len(l.ValidIssuers) > 0 {
		m["valid_issuers"] = append([]string(nil), l.ValidIssuers...)
	}
	if !l.IssuedAt.IsZero() {
		m["issued_at"] = l.IssuedAt.Unix()
	}
	if l.Source != "" {
		m["source"] = l.Source
	}
	return m
}
