package services

import (
	"bubble-relay/auth"
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/infrastructure/storage"
	"bubble-relay/signature"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	maxNameLength   = 128
	maxSearchLength = 64
)

type IUserService interface {
	GetUser(ctx context.Context, userID string) (domain.PublicUser, error)
	SearchUsers(ctx context.Context, query string) ([]domain.PublicUser, error)
	UpdateProfile(ctx context.Context, requester domain.Requester, cmd domain.UpdateProfileCommand) (domain.PublicUser, error)
	PublishIdentity(ctx context.Context, requester domain.Requester, identityKey []byte) error
	DeleteUser(ctx context.Context, requester domain.Requester, password string) error
}

type UserService struct {
	log         *slog.Logger
	users       storage.IUserRepository
	index       storage.IUserIndex
	names       NamePolicy
	searchLimit int
}

func NewUserService(log *slog.Logger, users storage.IUserRepository, index storage.IUserIndex, names NamePolicy, searchLimit int) *UserService {
	return &UserService{log: log, users: users, index: index, names: names, searchLimit: searchLimit}
}

func (s *UserService) GetUser(ctx context.Context, userID string) (domain.PublicUser, error) {
	id, err := domain.ParseID(userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

// SearchUsers looks users up by username or display name. Index hits
// whose user has since been deleted are skipped.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]domain.PublicUser, error) {
	query = strings.TrimSpace(query)
	if query == "" || utf8.RuneCountInString(query) > maxSearchLength {
		return nil, fmt.Errorf("%w: search query must be 1 to %d characters", errors.ErrInvalidRequest, maxSearchLength)
	}
	ids, err := s.index.Search(ctx, query, s.searchLimit)
	if err != nil {
		return nil, err
	}
	users := make([]domain.PublicUser, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.GetUser(ctx, id)
		if errors.Is(err, errors.ErrNotFound) {
			s.log.Debug("Stale search hit", "user_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user.Public())
	}
	return users, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, requester domain.Requester, cmd domain.UpdateProfileCommand) (domain.PublicUser, error) {
	if cmd.Name == nil && cmd.PrimaryClientID == nil {
		return domain.PublicUser{}, fmt.Errorf("%w: nothing to update", errors.ErrInvalidRequest)
	}
	if cmd.Name != nil && utf8.RuneCountInString(*cmd.Name) > maxNameLength {
		return domain.PublicUser{}, fmt.Errorf("%w: name longer than %d characters", errors.ErrInvalidRequest, maxNameLength)
	}
	if cmd.Name != nil {
		if err := s.names.Check(*cmd.Name); err != nil {
			return domain.PublicUser{}, err
		}
	}
	var primary *uuid.UUID
	if cmd.PrimaryClientID != nil {
		id, err := domain.ParseID(*cmd.PrimaryClientID)
		if err != nil {
			return domain.PublicUser{}, err
		}
		primary = lo.ToPtr(id)
	}

	if err := s.users.UpdateProfile(ctx, requester.User.ID, cmd.Name, primary); err != nil {
		return domain.PublicUser{}, err
	}
	user, err := s.users.GetUser(ctx, requester.User.ID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	if cmd.Name != nil {
		if err := s.index.Index(user); err != nil {
			s.log.Error("User not reindexed", "user_id", user.ID, "error", err)
		}
	}
	return user.Public(), nil
}

// PublishIdentity sets the identity key that roots trust for every client
// of the user. It can be done once.
func (s *UserService) PublishIdentity(ctx context.Context, requester domain.Requester, identityKey []byte) error {
	if len(identityKey) != signature.PublicKeySize {
		return fmt.Errorf("%w: identity key must be 32 bytes", errors.ErrInvalidRequest)
	}
	if requester.User.HasIdentity() {
		return errors.ErrIdentityAlreadySet
	}
	if err := s.users.SetIdentityKey(ctx, requester.User.ID, identityKey); err != nil {
		return err
	}
	s.log.Info("Identity key published", "user_id", requester.User.ID)
	return nil
}

// DeleteUser removes the account and everything it owns once the password
// has been confirmed.
func (s *UserService) DeleteUser(ctx context.Context, requester domain.Requester, password string) error {
	match, err := auth.ComparePassword(password, requester.User.PasswordHash)
	if err != nil || !match {
		return errors.ErrInvalidCredentials
	}
	if err := s.users.DeleteUser(ctx, requester.User.ID); err != nil {
		return err
	}
	if err := s.index.Remove(requester.User.ID); err != nil {
		s.log.Error("Deleted user still indexed", "user_id", requester.User.ID, "error", err)
	}
	s.log.Info("User deleted", "user_id", requester.User.ID)
	return nil
}
