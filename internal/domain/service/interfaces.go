package service

import (
	"context"
	"crypto"
	"time"

	"github.com/turtacn/cle/internal/domain/models"
)

// LicenseManager owns the ordered collection of loaded licenses and answers
// point-in-time queries over it. Implementations must allow reads to run
// concurrently with each other and with inserts.
// LicenseManager 拥有已加载许可证的有序集合，并响应针对该集合的时间点查询。
// 实现必须允许读取操作彼此之间以及与插入操作并发执行。
type LicenseManager interface {
	// Add inserts a license into the ordered collection, keeping it sorted
	// ascending by NotBefore. Any license value is accepted as-is; duplicates
	// simply appear twice.
	// Add 将许可证插入有序集合，保持按 NotBefore 升序排列。
	// 任何许可证值都按原样接受；重复项会出现两次。
	Add(ctx context.Context, lic *models.License)

	// Licenses returns a snapshot of all held licenses in sorted order. The
	// returned clones share no state with the managed collection.
	// Licenses 返回所有持有许可证的有序快照。返回的副本与受管集合不共享任何状态。
	Licenses() []*models.License

	// ActiveLicense folds every license relevant at now into one effective
	// grant. Active licenses win outright; expired licenses inside their
	// grace window apply only when nothing is active. A nil result means no
	// license is relevant, which is an absence, not an error.
	// ActiveLicense 将在 now 时刻相关的所有许可证折叠为一个有效授权。
	// 活动许可证绝对优先；处于宽限窗口内的过期许可证仅在没有活动许可证时适用。
	// nil 结果表示没有相关许可证，这是缺失而非错误。
	ActiveLicense(ctx context.Context, now time.Time) *models.License

	// CurrentLimits is a convenience alias for ActiveLicense with an explicit
	// presence flag.
	// CurrentLimits 是 ActiveLicense 的便捷别名，附带显式的存在标志。
	CurrentLimits(ctx context.Context, now time.Time) (*models.License, bool)

	// Count returns the number of held licenses.
	// Count 返回持有的许可证数量。
	Count() int
}

// LicenseChecker is the process-wide enforcement coordinator. It owns one
// LicenseManager plus the sets of client and issuer identifiers observed since
// process start, and makes admission decisions against the effective license.
// LicenseChecker 是进程级的执行协调器。它拥有一个 LicenseManager 以及自进程启动以来
// 观察到的客户端和颁发者标识符集合，并根据有效许可证做出准入决策。
type LicenseChecker interface {
	// AddLicense feeds a verified license into the owned manager.
	// AddLicense 将已验证的许可证送入其拥有的管理器。
	AddLicense(ctx context.Context, lic *models.License)

	// AllowClient decides whether clientID may be admitted at now. Known
	// clients are always grandfathered; an unknown client is admitted while
	// the distinct-client count stays within the effective limit scaled by
	// the tolerance factor. The decision is a value, never an error.
	// AllowClient 决定 clientID 在 now 时刻是否可被准入。已知客户端始终享有既得权利；
	// 未知客户端在不同客户端计数保持在有效限制乘以容差系数的范围内时被准入。
	// 决策是一个值，永远不是错误。
	AllowClient(ctx context.Context, clientID string, now time.Time) *models.AdmissionDecision

	// ResolveAndAllowClient applies AllowClient to the outcome of an in-flight
	// client lookup, passing absence through unchanged: a lookup that yields
	// no client ID produces a nil decision and no error.
	// ResolveAndAllowClient 将 AllowClient 应用于一个进行中的客户端查询的结果，
	// 并原样传递缺失：未产生客户端 ID 的查询返回 nil 决策且无错误。
	ResolveAndAllowClient(ctx context.Context, lookup func(context.Context) (string, error), now time.Time) (*models.AdmissionDecision, error)

	// AllowIssuer decides whether issuer may be admitted at now. Two
	// independent checks apply: when the effective license carries a
	// non-empty whitelist the issuer must be on it, and the issuer limit is
	// a hard cutoff with no tolerance margin. Previously seen issuers stay
	// allowed; refusals return an error alongside the refusing decision,
	// since issuer checks run in configuration contexts rather than on the
	// per-request hot path.
	// AllowIssuer 决定颁发者在 now 时刻是否可被准入。两项独立检查同时适用：
	// 当有效许可证携带非空白名单时，颁发者必须位于其中；颁发者限制是无容差余量的
	// 硬性截止。之前见过的颁发者保持可用；拒绝时将与拒绝决策一同返回错误，
	// 因为颁发者检查运行于配置场景而非每请求热路径。
	AllowIssuer(ctx context.Context, issuer string, now time.Time) (*models.AdmissionDecision, error)

	// Entitlements reports the enforcement regime in effect at now: tier,
	// effective limits, and admission counts.
	// Entitlements 报告在 now 时刻生效的执行体制：层级、有效限制和准入计数。
	Entitlements(ctx context.Context, now time.Time) *models.Entitlements
}

// LicenseValidator verifies a serialized license token and returns its claims.
// The loader treats it as a black box: signature, type header, algorithm, and
// issuer checks all collapse into one uniform validation failure.
// LicenseValidator 验证序列化的许可令牌并返回其声明。加载器将其视为黑盒：
// 签名、类型头、算法和颁发者检查全部折叠为一种统一的验证失败。
type LicenseValidator interface {
	// Validate verifies the token and returns its claims. Nominal expiry is
	// deliberately NOT enforced here; temporal enforcement belongs to the
	// manager at query time.
	// Validate 验证令牌并返回其声明。名义过期时间在此处特意不做强制检查；
	// 时间性执行属于管理器在查询时的职责。
	Validate(ctx context.Context, token string) (*models.LicenseClaims, error)
}

// TrustStore supplies the public key material license signatures are verified
// against. The key set is fixed at construction; runtime substitution of the
// trust root is not supported.
// TrustStore 提供用于验证许可证签名的公钥材料。密钥集合在构造时固定；
// 不支持在运行时替换信任根。
type TrustStore interface {
	// VerificationKey returns the public key for the given key ID. An empty
	// kid selects the default anchor.
	// VerificationKey 返回给定密钥 ID 对应的公钥。空 kid 选择默认信任锚。
	VerificationKey(ctx context.Context, kid string) (crypto.PublicKey, error)

	// KeyIDs lists the key IDs held by the store.
	// KeyIDs 列出存储持有的密钥 ID。
	KeyIDs() []string
}

// TokenProvider produces zero or more license token strings for the startup
// task to drain once. An empty sequence is a valid outcome: the deployment
// simply runs on free-tier limits.
// TokenProvider 生成零个或多个许可令牌字符串，供启动任务一次性读取。
// 空序列是有效结果：部署只是以免费层限制运行。
type TokenProvider interface {
	// Tokens returns the license tokens to ingest, each tagged with its source.
	// Tokens 返回要摄取的许可令牌，每个都标注其来源。
	Tokens(ctx context.Context) ([]ProvidedToken, error)
}

// ProvidedToken pairs a serialized license token with where it came from.
// ProvidedToken 将序列化的许可令牌与其来源配对。
type ProvidedToken struct {
	Token  string
	Source string
}

// ClientRegistry is a shared, durable mirror of the seen-client and
// seen-issuer sets, used when several replicas must agree on grandfathering.
// ClientRegistry 是已见客户端和已见颁发者集合的共享持久镜像，
// 用于多个副本必须就既得权利达成一致的场景。
type ClientRegistry interface {
	// AddClient records a client ID, reporting whether it was newly added.
	// AddClient 记录一个客户端 ID，报告其是否为新增。
	AddClient(ctx context.Context, clientID string) (bool, error)

	// HasClient reports whether a client ID has been recorded.
	// HasClient 报告某客户端 ID 是否已被记录。
	HasClient(ctx context.Context, clientID string) (bool, error)

	// CountClients returns the number of distinct recorded client IDs.
	// CountClients 返回已记录的不同客户端 ID 的数量。
	CountClients(ctx context.Context) (int64, error)

	// AddIssuer records an issuer, reporting whether it was newly added.
	// AddIssuer 记录一个颁发者，报告其是否为新增。
	AddIssuer(ctx context.Context, issuer string) (bool, error)

	// HasIssuer reports whether an issuer has been recorded.
	// HasIssuer 报告某颁发者是否已被记录。
	HasIssuer(ctx context.Context, issuer string) (bool, error)

	// CountIssuers returns the number of distinct recorded issuers.
	// CountIssuers 返回已记录的不同颁发者的数量。
	CountIssuers(ctx context.Context) (int64, error)
}

// ClientDirectory answers whether a client identifier is provisioned in the
// host deployment. Directory hits count as known for admission purposes.
// ClientDirectory 回答某客户端标识符是否已在宿主部署中开通。
// 目录命中在准入判断中视为已知。
type ClientDirectory interface {
	// Exists reports whether the client is provisioned.
	// Exists 报告该客户端是否已开通。
	Exists(ctx context.Context, clientID string) (bool, error)
}

// AuditService records security-relevant licensing events.
// AuditService 记录与安全相关的许可事件。
type AuditService interface {
	// LogEvent records an audit event. Failures are the caller's to swallow:
	// auditing is best-effort and must never block enforcement.
	// LogEvent 记录审计事件。失败由调用方自行吞掉：审计是尽力而为的，
	// 绝不能阻塞执行逻辑。
	LogEvent(ctx context.Context, event *models.AuditEvent) error
}

// RateLimitService bounds how often callers may hit the admission API.
// RateLimitService 限制调用方访问准入 API 的频率。
type RateLimitService interface {
	// Allow checks whether a request from identifier fits its budget. It
	// returns whether the request is allowed, the remaining budget, and when
	// the window resets.
	// Allow 检查来自 identifier 的请求是否在其预算内。它返回是否允许该请求、
	// 剩余预算以及窗口重置的时间。
	Allow(ctx context.Context, identifier string) (allowed bool, remaining int, resetAt time.Time, err error)
}

// Metrics defines the interface for collecting licensing business metrics.
// This abstraction keeps the domain layer independent of the monitoring
// implementation.
// Metrics 定义了收集许可业务指标的接口。该抽象使领域层独立于具体的监控实现。
type Metrics interface {
	// RecordLicenseLoad records a license ingestion attempt.
	// RecordLicenseLoad 记录一次许可证摄取尝试。
	RecordLicenseLoad(source string, success bool)

	// RecordClientAdmission records a client admission decision.
	// RecordClientAdmission 记录一次客户端准入决策。
	RecordClientAdmission(allowed bool, reason string)

	// RecordIssuerAdmission records an issuer admission decision.
	// RecordIssuerAdmission 记录一次颁发者准入决策。
	RecordIssuerAdmission(allowed bool, reason string)

	// RecordEvaluation records the duration of one effective-license fold.
	// RecordEvaluation 记录一次有效许可证折叠的持续时间。
	RecordEvaluation(tier string, duration time.Duration)

	// UpdateLicenseCounts updates the gauges for held and active licenses.
	// UpdateLicenseCounts 更新持有和活动许可证数量的仪表盘。
	UpdateLicenseCounts(held, active int)

	// UpdateKnownCounts updates the gauges for grandfathered principals.
	// UpdateKnownCounts 更新既得权利主体数量的仪表盘。
	UpdateKnownCounts(clients, issuers int64)
}
