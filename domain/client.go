// Package domain contains core concepts of the relay.
// This file defines Clients (devices) and identifier parsing.
package domain

import (
	"bubble-relay/errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Client is one device of a user. Signature is the owner's identity key
// signature over SigningKey; the pair is only ever persisted after it verified.
type Client struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	SigningKey []byte
	Signature  []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c Client) OwnedBy(userID uuid.UUID) bool {
	return c.UserID == userID
}

// ParseID parses a user or client identifier coming from a caller.
// Only the canonical 36-character form is accepted.
func ParseID(s string) (uuid.UUID, error) {
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("%w: malformed identifier %q", errors.ErrInvalidRequest, s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed identifier %q", errors.ErrInvalidRequest, s)
	}
	return id, nil
}
