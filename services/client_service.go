package services

import (
	"bubble-relay/domain"
	"bubble-relay/infrastructure/storage"
	"bubble-relay/signature"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type IClientService interface {
	CreateClient(ctx context.Context, requester domain.Requester, cmd domain.CreateClientCommand) (uuid.UUID, error)
	UpdateClient(ctx context.Context, requester domain.Requester, cmd domain.UpdateClientCommand) (uuid.UUID, error)
	DeleteClient(ctx context.Context, requester domain.Requester, clientID string) error
	GetClient(ctx context.Context, clientID string) (domain.Client, error)
	ListClients(ctx context.Context, userID string) ([]domain.Client, error)
}

// ClientService binds device signing keys to their owner's identity key.
// Every mutation re-verifies the attestation; nothing is trusted because
// it was stored.
type ClientService struct {
	log     *slog.Logger
	clients storage.IClientRepository
	now     func() time.Time
}

func NewClientService(log *slog.Logger, clients storage.IClientRepository) *ClientService {
	return &ClientService{log: log, clients: clients, now: time.Now}
}

func (s *ClientService) CreateClient(ctx context.Context, requester domain.Requester, cmd domain.CreateClientCommand) (uuid.UUID, error) {
	if err := signature.VerifyAttestation(requester.User.IdentityKey, cmd.SigningKey, cmd.Signature); err != nil {
		return uuid.Nil, err
	}
	now := s.now().UTC()
	client := domain.Client{
		ID:         uuid.New(),
		UserID:     requester.User.ID,
		SigningKey: cmd.SigningKey,
		Signature:  cmd.Signature,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.clients.CreateClient(ctx, client); err != nil {
		return uuid.Nil, err
	}
	s.log.Info("Client created", "user_id", client.UserID, "client_id", client.ID)
	return client.ID, nil
}

// UpdateClient rotates the signing key of an owned client. Key packages
// and mailbox are left untouched.
func (s *ClientService) UpdateClient(ctx context.Context, requester domain.Requester, cmd domain.UpdateClientCommand) (uuid.UUID, error) {
	client, err := ownedClient(ctx, s.clients, requester, cmd.ClientID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := signature.VerifyAttestation(requester.User.IdentityKey, cmd.SigningKey, cmd.Signature); err != nil {
		return uuid.Nil, err
	}
	if err := s.clients.UpdateClientKeys(ctx, client.ID, cmd.SigningKey, cmd.Signature, s.now().UTC()); err != nil {
		return uuid.Nil, err
	}
	s.log.Info("Client key rotated", "user_id", client.UserID, "client_id", client.ID)
	return client.ID, nil
}

func (s *ClientService) DeleteClient(ctx context.Context, requester domain.Requester, clientID string) error {
	client, err := ownedClient(ctx, s.clients, requester, clientID)
	if err != nil {
		return err
	}
	if err := s.clients.DeleteClient(ctx, client.ID); err != nil {
		return err
	}
	s.log.Info("Client deleted", "user_id", client.UserID, "client_id", client.ID)
	return nil
}

func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	id, err := domain.ParseID(clientID)
	if err != nil {
		return domain.Client{}, err
	}
	return s.clients.GetClient(ctx, id)
}

func (s *ClientService) ListClients(ctx context.Context, userID string) ([]domain.Client, error) {
	id, err := domain.ParseID(userID)
	if err != nil {
		return nil, err
	}
	return s.clients.ListClients(ctx, id)
}
