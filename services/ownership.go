package services

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/infrastructure/storage"
	"context"
	"fmt"
)

// ownedClient loads a client the requester must own. The checks run in a
// fixed order so callers see InvalidRequest, then NotFound, then Forbidden.
func ownedClient(ctx context.Context, clients storage.IClientRepository, requester domain.Requester, rawID string) (domain.Client, error) {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return domain.Client{}, err
	}
	client, err := clients.GetClient(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}
	if !client.OwnedBy(requester.User.ID) {
		return domain.Client{}, fmt.Errorf("%w: client %s belongs to another user", errors.ErrForbidden, id)
	}
	return client, nil
}
