package services

import (
	"bubble-relay/auth"
	"bubble-relay/domain"
	"bubble-relay/infrastructure/storage"
	"bubble-relay/internal/testkit"
	"bubble-relay/moderation"
	"bubble-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testPassword = "CorrectHorse42!"

// relay wires every service on a fresh in-memory store and index.
type relay struct {
	users       *storage.UserRepository
	auth        *AuthService
	accounts    *UserService
	clients     *ClientService
	keyPackages *KeyPackageService
	mailbox     *MailboxService
}

func newRelay(t *testing.T) relay {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db := testkit.OpenBadger(t)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	users := storage.NewUserRepository(db, log)
	clients := storage.NewClientRepository(db, log)
	sessions := storage.NewSessionRepository(db)
	index := storage.NewUserIndex(writer, log)
	keyPackages, err := storage.NewKeyPackageRepository(db, log)
	require.NoError(t, err)
	mailboxes := storage.NewMailboxRepository(db, log)
	t.Cleanup(func() { _ = keyPackages.Close() })
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	tokens := auth.NewTokenIssuer([]byte("services-test-secret-services-test"))
	names, err := moderation.NewNamePolicy([]string{"admin", "support"})
	require.NoError(t, err)

	return relay{
		users:       users,
		auth:        NewAuthService(log, users, sessions, index, tokens, names, time.Hour),
		accounts:    NewUserService(log, users, index, names, 20),
		clients:     NewClientService(log, clients),
		keyPackages: NewKeyPackageService(log, clients, keyPackages, metrics),
		mailbox:     NewMailboxService(log, clients, mailboxes, metrics),
	}
}

type member struct {
	requester domain.Requester
	identity  testkit.Identity
}

// register creates a user with a published identity key.
func (r relay) register(t *testing.T, username string) member {
	identity := testkit.NewIdentity(t)
	id, err := r.auth.Register(context.Background(), domain.RegisterCommand{
		Username:    username,
		Email:       username + "@example.com",
		Password:    testPassword,
		Name:        username,
		IdentityKey: identity.Public,
	})
	require.NoError(t, err)
	return member{requester: r.requester(t, id), identity: identity}
}

// requester reloads the user the way the gate would.
func (r relay) requester(t *testing.T, id uuid.UUID) domain.Requester {
	user, err := r.users.GetUser(context.Background(), id)
	require.NoError(t, err)
	return domain.Requester{User: user, SessionID: uuid.New()}
}

func (r relay) addClient(t *testing.T, m member) uuid.UUID {
	signingKey := testkit.NewSigningKey(t)
	id, err := r.clients.CreateClient(context.Background(), m.requester, domain.CreateClientCommand{
		SigningKey: signingKey,
		Signature:  m.identity.Attest(signingKey),
	})
	require.NoError(t, err)
	return id
}
