package services

import (
	"context"
	"time"

	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/persistence/localstate"
	"github.com/hall-dev/halldev-go/internal/infrastructure/security"
)

// ErrInvalidAdminToken is surfaced to handlers when a presented admin
// token or session does not check out
var ErrInvalidAdminToken = security.ErrInvalidAdminToken

// AdminServiceConfig carries the admin access tunables
type AdminServiceConfig struct {
	TokenHash  string // bcrypt hash of the admin access token
	JWTSecret  string
	SessionTTL time.Duration
}

// AdminService exchanges the admin access token for a revocable session
// JWT and validates it on admin routes
type AdminService struct {
	store  *localstate.Store
	logger *logging.ChanneledLogger
	config AdminServiceConfig
}

// NewAdminService creates the admin service
func NewAdminService(store *localstate.Store, logger *logging.ChanneledLogger, config AdminServiceConfig) *AdminService {
	return &AdminService{
		store:  store,
		logger: logger,
		config: config,
	}
}

// Login verifies the presented admin token and issues a session JWT
func (s *AdminService) Login(ctx context.Context, token string) (string, error) {
	if err := security.VerifyAdminToken(token, s.config.TokenHash); err != nil {
		s.logger.Auth().Warn("Admin login rejected")
		return "", err
	}

	jwtToken, tokenID, err := security.GenerateAdminToken(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if err := s.store.RecordAdminSession(ctx, tokenID, now, now.Add(s.config.SessionTTL)); err != nil {
		return "", err
	}

	s.logger.Auth().Info("Admin session issued", "tokenId", tokenID)
	return jwtToken, nil
}

// Validate checks a session JWT and its revocation state. Returns the
// token id when valid.
func (s *AdminService) Validate(ctx context.Context, jwtToken string) (string, error) {
	claims, err := security.ValidateJWT(jwtToken, s.config.JWTSecret)
	if err != nil {
		return "", err
	}

	tokenID := security.TokenIDFromClaims(claims)
	active, err := s.store.AdminSessionActive(ctx, tokenID)
	if err != nil {
		return "", err
	}
	if !active {
		return "", security.ErrInvalidAdminToken
	}
	return tokenID, nil
}

// Logout revokes the admin session (the Escape key path)
func (s *AdminService) Logout(ctx context.Context, jwtToken string) error {
	tokenID, err := s.Validate(ctx, jwtToken)
	if err != nil {
		return err
	}
	if err := s.store.RevokeAdminSession(ctx, tokenID); err != nil {
		return err
	}
	s.logger.Auth().Info("Admin session revoked", "tokenId", tokenID)
	return nil
}
