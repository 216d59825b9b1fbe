package auth

import (
	"context"
	"errors"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	apperrors "photopedia-backend/pkg/errors"

	"go.uber.org/zap"
)

// Guard is the access control layer: it turns bearer tokens into
// principals and checks role membership. Ownership checks stay at the
// call sites so the policy remains auditable per route.
type Guard struct {
	verifier TokenVerifier
	users    ports.UserRepository
	logger   *zap.Logger
}

// NewGuard creates a new guard
func NewGuard(verifier TokenVerifier, users ports.UserRepository, logger *zap.Logger) *Guard {
	return &Guard{
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

// Authenticate verifies the token, resolves it to a user record and
// refuses deactivated accounts. A successful authentication records
// the login timestamp best-effort.
func (g *Guard) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("missing authentication token")
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, apperrors.NewTokenExpiredError()
		}
		return nil, apperrors.NewUnauthorizedError("invalid authentication token")
	}

	user, err := g.users.GetByExternalAuthID(ctx, claims.AuthID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorizedError("unknown identity")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.NewForbiddenError("account is deactivated")
	}

	if err := g.users.RecordLogin(ctx, user.UserID); err != nil {
		// Login stamping must never fail the request.
		g.logger.Warn("failed to record login",
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
	}

	return &Principal{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// Authorize is a pure role-membership check.
func (g *Guard) Authorize(p *Principal, roles ...entities.Role) error {
	if p == nil {
		return apperrors.NewUnauthorizedError("")
	}
	if !p.HasRole(roles...) {
		return apperrors.NewForbiddenError("insufficient permissions")
	}
	return nil
}

// Optional runs the same verification but never raises: absence or
// invalidity of credentials resolves to no principal. Used on
// guest-accessible gallery reads.
func (g *Guard) Optional(ctx context.Context, token string) *Principal {
	if token == "" {
		return nil
	}
	principal, err := g.Authenticate(ctx, token)
	if err != nil {
		g.logger.Debug("optional authentication rejected", zap.Error(err))
		return nil
	}
	return principal
}
