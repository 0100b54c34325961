package fitbit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/metrics"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

// refreshTimeout bounds one refresh, including storing the new pair.
const refreshTimeout = 15 * time.Second

// Refresher redeems a refresh token. auth.FitbitProvider implements it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// TokenManager hands out the stored access token for a user and replaces
// the pair when the provider rejects it.
type TokenManager struct {
	conns     repository.FitbitConnectionRepository
	refresher Refresher
	logger    *slog.Logger

	// Fitbit rotates refresh tokens, so two concurrent refreshes for the
	// same user would invalidate each other. Calls are collapsed per user.
	inflight singleflight.Group
}

func NewTokenManager(conns repository.FitbitConnectionRepository, refresher Refresher, logger *slog.Logger) *TokenManager {
	return &TokenManager{conns: conns, refresher: refresher, logger: logger}
}

// AccessToken returns the stored access token. A user without a connection
// gets an Unauthorized error.
func (m *TokenManager) AccessToken(ctx context.Context, userID string) (string, error) {
	conn, err := m.conns.GetFitbitConnection(ctx, userID)
	if err != nil {
		return "", err
	}
	if conn == nil || conn.AccessToken == "" {
		return "", apperror.Unauthorized("fitbit account not connected")
	}
	return conn.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new pair, persists it and
// returns the new access token. Any failure is an Unauthorized error and is
// not retried.
//
// The refresh is detached from ctx's cancellation: once Fitbit has rotated
// the pair the old refresh token is dead, so the new one has to be stored
// even if the caller has gone away.
func (m *TokenManager) Refresh(ctx context.Context, userID string) (string, error) {
	v, err, _ := m.inflight.Do(userID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(rctx, userID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) refresh(ctx context.Context, userID string) (string, error) {
	conn, err := m.conns.GetFitbitConnection(ctx, userID)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", apperror.Unauthorized("fitbit account not connected")
	}

	token, err := m.refresher.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		m.logger.Warn("fitbit token refresh failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return "", apperror.Unauthorized("fitbit authorization expired, reconnect required")
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}
	if err := m.conns.UpdateFitbitTokens(ctx, userID, token.AccessToken, refreshToken); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return "", err
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	m.logger.Info("fitbit token refreshed", slog.String("userID", userID))
	return token.AccessToken, nil
}
