package auth

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/infrastructure/storage"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const bearerScheme = "Bearer "

// Gate turns an Authorization header into the requesting user. Every
// failure collapses to ErrUnauthorized so callers cannot tell a revoked
// session from a forged token.
type Gate struct {
	tokens   *TokenIssuer
	sessions storage.ISessionRepository
	users    storage.IUserRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewGate(tokens *TokenIssuer, sessions storage.ISessionRepository, users storage.IUserRepository, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, sessions: sessions, users: users, log: log, now: time.Now}
}

func (g *Gate) Resolve(ctx context.Context, authorization string) (domain.Requester, error) {
	if !strings.HasPrefix(authorization, bearerScheme) {
		return domain.Requester{}, fmt.Errorf("%w: missing bearer token", errors.ErrUnauthorized)
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, bearerScheme))
	if token == "" {
		return domain.Requester{}, fmt.Errorf("%w: empty bearer token", errors.ErrUnauthorized)
	}

	claims, err := g.tokens.Parse(token)
	if err != nil {
		return domain.Requester{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return domain.Requester{}, fmt.Errorf("%w: malformed subject", errors.ErrUnauthorized)
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return domain.Requester{}, fmt.Errorf("%w: malformed token id", errors.ErrUnauthorized)
	}

	session, err := g.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Requester{}, g.deny("session lookup failed", err)
	}
	if session.UserID != userID || session.Expired(g.now()) {
		return domain.Requester{}, fmt.Errorf("%w: session does not match token", errors.ErrUnauthorized)
	}

	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Requester{}, g.deny("user lookup failed", err)
	}
	return domain.Requester{User: user, SessionID: sessionID}, nil
}

// deny logs storage failures, which are not the caller's fault, before
// hiding them behind ErrUnauthorized.
func (g *Gate) deny(msg string, err error) error {
	if errors.Is(err, errors.ErrInternal) {
		g.log.Error(msg, "error", err)
	}
	return fmt.Errorf("%w: %s", errors.ErrUnauthorized, msg)
}
