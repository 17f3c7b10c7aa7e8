package domain

import "github.com/google/uuid"

// Commands carry a request from the transport into a service once the
// requester has been authenticated. Identifiers stay strings until the
// service parses them so malformed input maps to InvalidRequest.

type CreateClientCommand struct {
	SigningKey []byte
	Signature  []byte
}

type UpdateClientCommand struct {
	ClientID   string
	SigningKey []byte
	Signature  []byte
}

type ReplaceKeyPackagesCommand struct {
	ClientID    string
	KeyPackages [][]byte
}

type SendMessageCommand struct {
	RecipientIDs []string
	Payload      []byte
}

type AcknowledgeCommand struct {
	ClientID string
	Through  uint64
}

type RegisterCommand struct {
	Username    string
	Email       string
	Password    string
	Name        string
	IdentityKey []byte
}

type UpdateProfileCommand struct {
	Name            *string
	PrimaryClientID *string
}

// Requester is the authenticated user an operation runs for. It is only
// ever produced by the authorization gate.
type Requester struct {
	User      User
	SessionID uuid.UUID
}
