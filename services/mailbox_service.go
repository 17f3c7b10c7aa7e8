package services

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/infrastructure/storage"
	"bubble-relay/observability"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMailboxService interface {
	Send(ctx context.Context, requester domain.Requester, cmd domain.SendMessageCommand) (int, error)
	Receive(ctx context.Context, requester domain.Requester, clientID string) ([]domain.MailboxEntry, error)
	Acknowledge(ctx context.Context, requester domain.Requester, cmd domain.AcknowledgeCommand) (int, error)
}

// MailboxService fans opaque payloads out to recipient clients and hands
// them back to their owners.
type MailboxService struct {
	log       *slog.Logger
	clients   storage.IClientRepository
	mailboxes storage.IMailboxRepository
	metrics   *observability.Metrics
}

func NewMailboxService(
	log *slog.Logger,
	clients storage.IClientRepository,
	mailboxes storage.IMailboxRepository,
	metrics *observability.Metrics,
) *MailboxService {
	return &MailboxService{log: log, clients: clients, mailboxes: mailboxes, metrics: metrics}
}

// Send delivers payload once to every distinct recipient, or to none of
// them. It returns the number of entries appended.
func (s *MailboxService) Send(ctx context.Context, requester domain.Requester, cmd domain.SendMessageCommand) (int, error) {
	if len(cmd.RecipientIDs) == 0 {
		return 0, fmt.Errorf("%w: no recipients", errors.ErrInvalidRequest)
	}
	if len(cmd.Payload) == 0 {
		return 0, fmt.Errorf("%w: empty message", errors.ErrInvalidRequest)
	}
	recipients := make([]uuid.UUID, 0, len(cmd.RecipientIDs))
	for _, raw := range cmd.RecipientIDs {
		id, err := domain.ParseID(raw)
		if err != nil {
			return 0, err
		}
		recipients = append(recipients, id)
	}
	recipients = lo.Uniq(recipients)

	entries, err := s.mailboxes.Append(ctx, recipients, cmd.Payload)
	if err != nil {
		return 0, err
	}
	s.metrics.MessagesDelivered(len(entries))
	s.log.Debug("Message relayed", "sender_id", requester.User.ID, "recipients", len(entries), "size", len(cmd.Payload))
	return len(entries), nil
}

// Receive returns the owner's pending entries, oldest first. Nothing is
// removed until the owner acknowledges.
func (s *MailboxService) Receive(ctx context.Context, requester domain.Requester, clientID string) ([]domain.MailboxEntry, error) {
	client, err := ownedClient(ctx, s.clients, requester, clientID)
	if err != nil {
		return nil, err
	}
	return s.mailboxes.List(ctx, client.ID)
}

func (s *MailboxService) Acknowledge(ctx context.Context, requester domain.Requester, cmd domain.AcknowledgeCommand) (int, error) {
	client, err := ownedClient(ctx, s.clients, requester, cmd.ClientID)
	if err != nil {
		return 0, err
	}
	removed, err := s.mailboxes.DeleteThrough(ctx, client.ID, cmd.Through)
	if err != nil {
		return 0, err
	}
	s.metrics.MessagesAcknowledged(removed)
	return removed, nil
}
