package services

import (
	"bubble-relay/auth"
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/infrastructure/storage"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type IAuthService interface {
	Register(ctx context.Context, cmd domain.RegisterCommand) (uuid.UUID, error)
	Login(ctx context.Context, login, password string) (LoginResult, error)
	Logout(ctx context.Context, requester domain.Requester) error
}

// NamePolicy rejects usernames and display names the relay refuses to host.
type NamePolicy interface {
	Check(name string) error
}

type LoginResult struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	log               *slog.Logger
	users             storage.IUserRepository
	sessions          storage.ISessionRepository
	index             storage.IUserIndex
	tokens            *auth.TokenIssuer
	names             NamePolicy
	authTokenDuration time.Duration
	now               func() time.Time
}

func NewAuthService(
	log *slog.Logger,
	users storage.IUserRepository,
	sessions storage.ISessionRepository,
	index storage.IUserIndex,
	tokens *auth.TokenIssuer,
	names NamePolicy,
	authTokenDuration time.Duration,
) *AuthService {
	return &AuthService{
		log:               log,
		users:             users,
		sessions:          sessions,
		index:             index,
		tokens:            tokens,
		names:             names,
		authTokenDuration: authTokenDuration,
		now:               time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, cmd domain.RegisterCommand) (uuid.UUID, error) {
	// Validate before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Username:    cmd.Username,
		Email:       cmd.Email,
		Password:    cmd.Password,
		Name:        cmd.Name,
		IdentityKey: cmd.IdentityKey,
	}); err != nil {
		return uuid.Nil, err
	}
	for _, name := range []string{cmd.Username, cmd.Name} {
		if err := s.names.Check(name); err != nil {
			return uuid.Nil, err
		}
	}

	hashedPassword, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return uuid.Nil, err
	}

	user := domain.User{
		ID:           uuid.New(),
		Username:     cmd.Username,
		Email:        strings.TrimSpace(cmd.Email),
		PasswordHash: hashedPassword,
		Name:         cmd.Name,
		IdentityKey:  cmd.IdentityKey,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return uuid.Nil, err
	}
	if err := s.index.Index(user); err != nil {
		s.log.Error("User not indexed for search", "user_id", user.ID, "error", err)
	}
	s.log.Info("User registered", "user_id", user.ID, "username", user.Username)
	return user.ID, nil
}

// Login checks credentials and opens a session. Unknown login and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, login, password string) (LoginResult, error) {
	user, err := s.users.GetUserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.log.Error("Login lookup failed", "error", err)
		}
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.authTokenDuration),
	}
	token, err := s.tokens.Issue(session)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return LoginResult{}, err
	}
	s.log.Info("User logged in", "user_id", user.ID, "session_id", session.ID)
	return LoginResult{UserID: user.ID, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (s *AuthService) Logout(ctx context.Context, requester domain.Requester) error {
	if err := s.sessions.DeleteSession(ctx, requester.SessionID); err != nil {
		return err
	}
	s.log.Info("User logged out", "user_id", requester.User.ID, "session_id", requester.SessionID)
	return nil
}
