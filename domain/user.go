// Package domain contains core concepts of the relay.
// This file defines User accounts and their identity key.
// No storage, network, or transport logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User owns clients. IdentityKey is the Ed25519 public key that roots trust
// for every client of the user; once set it never changes.
type User struct {
	ID              uuid.UUID
	Username        string
	Email           string
	PasswordHash    string
	Name            string
	IdentityKey     []byte
	PrimaryClientID *uuid.UUID
	CreatedAt       time.Time
}

// PublicUser is what other users may see.
type PublicUser struct {
	ID              uuid.UUID
	Username        string
	Name            string
	PrimaryClientID *uuid.UUID
	IdentityKey     []byte
}

func (u User) HasIdentity() bool {
	return len(u.IdentityKey) > 0
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		Name:            u.Name,
		PrimaryClientID: u.PrimaryClientID,
		IdentityKey:     u.IdentityKey,
	}
}
