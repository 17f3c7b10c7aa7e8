package services

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/infrastructure/storage"
	"bubble-relay/observability"
	"context"
	"fmt"
	"log/slog"
)

type IKeyPackageService interface {
	ReplaceKeyPackages(ctx context.Context, requester domain.Requester, cmd domain.ReplaceKeyPackagesCommand) error
	FetchKeyPackage(ctx context.Context, clientID string) (domain.KeyPackage, error)
	CountKeyPackages(ctx context.Context, requester domain.Requester, clientID string) (int, error)
}

type KeyPackageService struct {
	log         *slog.Logger
	clients     storage.IClientRepository
	keyPackages storage.IKeyPackageRepository
	metrics     *observability.Metrics
}

func NewKeyPackageService(
	log *slog.Logger,
	clients storage.IClientRepository,
	keyPackages storage.IKeyPackageRepository,
	metrics *observability.Metrics,
) *KeyPackageService {
	return &KeyPackageService{log: log, clients: clients, keyPackages: keyPackages, metrics: metrics}
}

// ReplaceKeyPackages swaps the client's whole pool for the given batch.
// Every package must claim exactly this client; one bad package rejects
// the batch and leaves the old pool in place.
func (s *KeyPackageService) ReplaceKeyPackages(ctx context.Context, requester domain.Requester, cmd domain.ReplaceKeyPackagesCommand) error {
	client, err := ownedClient(ctx, s.clients, requester, cmd.ClientID)
	if err != nil {
		return err
	}
	if len(cmd.KeyPackages) == 0 {
		return fmt.Errorf("%w: no key packages", errors.ErrInvalidRequest)
	}
	for i, kp := range cmd.KeyPackages {
		identity, err := domain.ParseKeyPackageIdentity(kp)
		if err != nil {
			return fmt.Errorf("key package %d: %w", i, err)
		}
		if !identity.Matches(client) {
			return fmt.Errorf("%w: key package %d claims %s", errors.ErrInvalidIdentity, i, identity)
		}
	}
	if err := s.keyPackages.ReplaceKeyPackages(ctx, client.ID, cmd.KeyPackages); err != nil {
		return err
	}
	s.metrics.KeyPackagesStored(len(cmd.KeyPackages))
	s.log.Info("Key package pool replaced", "client_id", client.ID, "count", len(cmd.KeyPackages))
	return nil
}

// FetchKeyPackage consumes the oldest key package of any client.
func (s *KeyPackageService) FetchKeyPackage(ctx context.Context, clientID string) (domain.KeyPackage, error) {
	id, err := domain.ParseID(clientID)
	if err != nil {
		return domain.KeyPackage{}, err
	}
	kp, err := s.keyPackages.FetchKeyPackage(ctx, id)
	switch {
	case errors.Is(err, errors.ErrNoKeyPackage):
		s.metrics.KeyPackagesExhausted()
		s.log.Warn("Key package pool exhausted", "client_id", id)
		return domain.KeyPackage{}, err
	case err != nil:
		return domain.KeyPackage{}, err
	}
	s.metrics.KeyPackageFetched()
	return kp, nil
}

func (s *KeyPackageService) CountKeyPackages(ctx context.Context, requester domain.Requester, clientID string) (int, error) {
	client, err := ownedClient(ctx, s.clients, requester, clientID)
	if err != nil {
		return 0, err
	}
	return s.keyPackages.CountKeyPackages(ctx, client.ID)
}
