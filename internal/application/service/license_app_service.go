// Package service provides application-level services that orchestrate the
// licensing domain services, the validator, and the repositories.
package service

import (
	"context"
	"time"

	"github.com/turtacn/cle/internal/application/dto"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/repository"
	domainService "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
	"github.com/turtacn/cle/pkg/utils"
)

// LicenseAppService is the application-facing licensing API. It sits between
// the transport layer and the domain: token verification, persistence, and
// enforcement queries all go through here.
// LicenseAppService 是面向应用的许可 API。它位于传输层与领域层之间：
// 令牌验证、持久化和执行查询都经由此处。
type LicenseAppService interface {
	// LoadLicense verifies a serialized token, persists it, and feeds it
	// into the enforcement checker. source records where the token came from.
	LoadLicense(ctx context.Context, token, source string) (*dto.LicenseSummary, error)

	// ListLicenses returns every held license with its temporal status at
	// the time of the call.
	ListLicenses(ctx context.Context) *dto.LicenseListResponse

	// ActiveLicense returns the folded effective grant, or an absent
	// response when no license is relevant.
	ActiveLicense(ctx context.Context) *dto.ActiveLicenseResponse

	// CheckClient runs the client admission check for clientID.
	CheckClient(ctx context.Context, clientID string) (*dto.AdmissionResponse, error)

	// CheckIssuer runs the issuer admission check. A refusal is a decision,
	// not an error; only an empty issuer is rejected as invalid input.
	CheckIssuer(ctx context.Context, issuer string) (*dto.AdmissionResponse, error)

	// Entitlements reports the enforcement regime in effect now.
	Entitlements(ctx context.Context) *dto.EntitlementsResponse

	// BootstrapLicenses replays persisted licenses and drains the given
	// providers once. Provider token failures are fatal here: a deployment
	// that explicitly configures a license does not silently run without it.
	BootstrapLicenses(ctx context.Context, providers ...domainService.TokenProvider) error
}

// AppDeps carries the optional collaborators of the application service.
// Audit, Metrics, and Repo may be nil; the service then skips that concern.
type AppDeps struct {
	Repo    repository.LicenseRepository
	Audit   domainService.AuditService
	Metrics domainService.Metrics
}

type licenseAppServiceImpl struct {
	validator     domainService.LicenseValidator
	checker       domainService.LicenseChecker
	manager       domainService.LicenseManager
	deps          AppDeps
	fallbackGrace time.Duration
	log           logger.Logger
}

var _ LicenseAppService = (*licenseAppServiceImpl)(nil)

// NewLicenseAppService creates the application licensing service.
//
// Parameters:
//   - validator: Verifies serialized license tokens.
//   - checker: The process-wide enforcement coordinator.
//   - manager: The license collection the checker runs on, for listing.
//   - fallbackGrace: Grace period applied to licenses carrying none.
//   - deps: Optional persistence, audit, and metrics collaborators.
//   - log: Logger instance.
//
// Returns:
//   - LicenseAppService: The initialized service.
func NewLicenseAppService(
	validator domainService.LicenseValidator,
	checker domainService.LicenseChecker,
	manager domainService.LicenseManager,
	fallbackGrace time.Duration,
	deps AppDeps,
	log logger.Logger,
) LicenseAppService {
	if fallbackGrace < 0 {
		fallbackGrace = 0
	}
	return &licenseAppServiceImpl{
		validator:     validator,
		checker:       checker,
		manager:       manager,
		deps:          deps,
		fallbackGrace: fallbackGrace,
		log:           log.WithComponent("license_app_service"),
	}
}

// LoadLicense implements runtime license ingestion: validate, persist, enforce.
func (s *licenseAppServiceImpl) LoadLicense(ctx context.Context, token, source string) (*dto.LicenseSummary, error) {
	if token == "" {
		return nil, errors.ErrMissingRequiredParameter("license")
	}
	if source == "" {
		source = constants.LicenseSourceAPI
	}

	claims, err := s.validator.Validate(ctx, token)
	if err != nil {
		s.recordLoad(ctx, source, false)
		s.audit(ctx, models.NewAuditEvent(
			constants.EventTypeLicenseRejected,
			constants.AuditResultFailure,
			"license token failed verification",
		).WithResultCode(constants.ErrCodeInvalidLicense).
			WithMetadata(map[string]string{"source": source, "token": utils.MaskToken(token)}))
		return nil, err
	}

	lic := claims.ToLicense(token, source)

	if s.deps.Repo != nil {
		if err := s.deps.Repo.Save(ctx, lic); err != nil {
			s.recordLoad(ctx, source, false)
			s.log.Error(ctx, "Failed to persist license", err,
				logger.String("license_id", lic.ID))
			return nil, err
		}
	}

	s.checker.AddLicense(ctx, lic)
	s.recordLoad(ctx, source, true)
	s.audit(ctx, models.NewAuditEvent(
		constants.EventTypeLicenseLoaded,
		constants.AuditResultSuccess,
		"license loaded",
	).WithLicense(lic.ID).WithIssuer(lic.Issuer).
		WithMetadata(map[string]string{"source": source}))

	now := time.Now()
	s.log.Info(ctx, "License loaded",
		logger.String("license_id", lic.ID),
		logger.String("issuer", lic.Issuer),
		logger.String("source", source),
		logger.String("status", string(lic.StatusAt(now, s.fallbackGrace))),
	)

	return dto.NewLicenseSummary(lic, now, s.fallbackGrace), nil
}

// ListLicenses implements the snapshot listing.
func (s *licenseAppServiceImpl) ListLicenses(ctx context.Context) *dto.LicenseListResponse {
	now := time.Now()
	held := s.manager.Licenses()

	summaries := make([]*dto.LicenseSummary, 0, len(held))
	for _, lic := range held {
		summaries = append(summaries, dto.NewLicenseSummary(lic, now, s.fallbackGrace))
	}
	return &dto.LicenseListResponse{Licenses: summaries, Count: len(summaries)}
}

// ActiveLicense implements the effective-grant query.
func (s *licenseAppServiceImpl) ActiveLicense(ctx context.Context) *dto.ActiveLicenseResponse {
	now := time.Now()
	lic, ok := s.manager.CurrentLimits(ctx, now)
	if !ok {
		return &dto.ActiveLicenseResponse{Present: false}
	}
	return &dto.ActiveLicenseResponse{
		Present: true,
		License: dto.NewLicenseSummary(lic, now, s.fallbackGrace),
	}
}

// CheckClient implements the client admission check.
func (s *licenseAppServiceImpl) CheckClient(ctx context.Context, clientID string) (*dto.AdmissionResponse, error) {
	if clientID == "" {
		return nil, errors.ErrMissingRequiredParameter("client_id")
	}
	decision := s.checker.AllowClient(ctx, clientID, time.Now())
	return dto.NewAdmissionResponse(decision), nil
}

// CheckIssuer implements the issuer admission check. The checker's refusal
// error is folded into the decision: admission outcomes are policy answers
// for the caller, not transport failures.
func (s *licenseAppServiceImpl) CheckIssuer(ctx context.Context, issuer string) (*dto.AdmissionResponse, error) {
	if issuer == "" {
		return nil, errors.ErrMissingRequiredParameter("issuer")
	}
	decision, err := s.checker.AllowIssuer(ctx, issuer, time.Now())
	if err != nil && !errors.IsAdmissionRefusal(err) {
		return nil, err
	}
	return dto.NewAdmissionResponse(decision), nil
}

// Entitlements implements the enforcement snapshot query.
func (s *licenseAppServiceImpl) Entitlements(ctx context.Context) *dto.EntitlementsResponse {
	return dto.NewEntitlementsResponse(s.checker.Entitlements(ctx, time.Now()))
}

// BootstrapLicenses replays the persisted collection and drains the providers.
// Persisted rows were verified at ingestion, so they feed the checker
// directly; provider tokens go through the full load path.
func (s *licenseAppServiceImpl) BootstrapLicenses(ctx context.Context, providers ...domainService.TokenProvider) error {
	if s.deps.Repo != nil {
		stored, err := s.deps.Repo.ListAll(ctx)
		if err != nil {
			return err
		}
		for _, lic := range stored {
			s.checker.AddLicense(ctx, lic)
		}
		if len(stored) > 0 {
			s.log.Info(ctx, "Replayed persisted licenses", logger.Int("count", len(stored)))
		}
	}

	for _, provider := range providers {
		tokens, err := provider.Tokens(ctx)
		if err != nil {
			return err
		}
		for _, pt := range tokens {
			if _, err := s.LoadLicense(ctx, pt.Token, pt.Source); err != nil {
				return errors.WrapError(err, constants.ErrCodeInvalidLicense,
					"configured license failed to load: "+pt.Source)
			}
		}
	}

	return nil
}

func (s *licenseAppServiceImpl) recordLoad(ctx context.Context, source string, success bool) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordLicenseLoad(source, success)
	}
}

// audit sends the event best-effort; a failing trail never blocks ingestion.
func (s *licenseAppServiceImpl) audit(ctx context.Context, event *models.AuditEvent) {
	if s.deps.Audit == nil {
		return
	}
	if err := s.deps.Audit.LogEvent(ctx, event); err != nil {
		s.log.Warn(ctx, "Failed to write audit event",
			logger.String("event_type", string(event.EventType)),
			logger.Error(err),
		)
	}
}
