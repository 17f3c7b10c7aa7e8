package services

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMailboxService_SendReceiveAcknowledge(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	r := newRelay(t)
	alice := r.register(t, "alice")
	bob := r.register(t, "bob")
	phone := r.addClient(t, bob)
	laptop := r.addClient(t, bob)

	delivered, err := r.mailbox.Send(ctx, alice.requester, domain.SendMessageCommand{
		RecipientIDs: []string{phone.String(), laptop.String(), phone.String()},
		Payload:      []byte("welcome"),
	})
	req.NoError(err)
	req.Equal(2, delivered)

	_, err = r.mailbox.Send(ctx, alice.requester, domain.SendMessageCommand{
		RecipientIDs: []string{phone.String()},
		Payload:      []byte("commit"),
	})
	req.NoError(err)

	entries, err := r.mailbox.Receive(ctx, bob.requester, phone.String())
	req.NoError(err)
	req.Len(entries, 2)
	req.Equal([]byte("welcome"), entries[0].Payload)
	req.Equal([]byte("commit"), entries[1].Payload)

	// Reading twice returns the same entries
	again, err := r.mailbox.Receive(ctx, bob.requester, phone.String())
	req.NoError(err)
	req.Len(again, 2)

	removed, err := r.mailbox.Acknowledge(ctx, bob.requester, domain.AcknowledgeCommand{
		ClientID: phone.String(),
		Through:  entries[0].Seq,
	})
	req.NoError(err)
	req.Equal(1, removed)

	entries, err = r.mailbox.Receive(ctx, bob.requester, phone.String())
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal([]byte("commit"), entries[0].Payload)

	entries, err = r.mailbox.Receive(ctx, bob.requester, laptop.String())
	req.NoError(err)
	req.Len(entries, 1)
}

func TestMailboxService_SendIsAllOrNothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	r := newRelay(t)
	alice := r.register(t, "alice")
	bob := r.register(t, "bob")
	phone := r.addClient(t, bob)

	_, err := r.mailbox.Send(ctx, alice.requester, domain.SendMessageCommand{
		RecipientIDs: []string{phone.String(), uuid.NewString()},
		Payload:      []byte("lost"),
	})
	req.ErrorIs(err, errors.ErrNotFound)

	entries, err := r.mailbox.Receive(ctx, bob.requester, phone.String())
	req.NoError(err)
	req.Empty(entries)
}

func TestMailboxService_InvalidRequests(t *testing.T) {
	ctx := context.Background()
	r := newRelay(t)
	alice := r.register(t, "alice")
	bob := r.register(t, "bob")
	phone := r.addClient(t, bob)

	tests := []struct {
		description string
		cmd         domain.SendMessageCommand
	}{
		{"Should fail without recipients", domain.SendMessageCommand{Payload: []byte("x")}},
		{"Should fail with an empty payload", domain.SendMessageCommand{RecipientIDs: []string{phone.String()}}},
		{"Should fail with a malformed recipient", domain.SendMessageCommand{RecipientIDs: []string{phone.String(), "bob"}, Payload: []byte("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := r.mailbox.Send(ctx, alice.requester, tt.cmd)
			require.ErrorIs(t, err, errors.ErrInvalidRequest)
		})
	}

	t.Run("Should refuse reading someone else's mailbox", func(t *testing.T) {
		req := require.New(t)
		_, err := r.mailbox.Receive(ctx, alice.requester, phone.String())
		req.ErrorIs(err, errors.ErrForbidden)
		_, err = r.mailbox.Acknowledge(ctx, alice.requester, domain.AcknowledgeCommand{ClientID: phone.String(), Through: 100})
		req.ErrorIs(err, errors.ErrForbidden)
		_, err = r.mailbox.Receive(ctx, bob.requester, uuid.NewString())
		req.ErrorIs(err, errors.ErrNotFound)
		_, err = r.mailbox.Receive(ctx, bob.requester, "xyz")
		req.ErrorIs(err, errors.ErrInvalidRequest)
	})
}
