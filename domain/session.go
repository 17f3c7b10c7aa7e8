package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session backs one bearer token. Deleting it revokes the token.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
