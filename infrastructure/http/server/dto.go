package server

import (
	"bubble-relay/domain"
	"bubble-relay/observability"

	"github.com/samber/lo"
)

// Wire types. []byte fields travel as standard base64 strings and
// timestamps as unix seconds.

type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	Identity []byte `json:"identity,omitempty"`
}

type registerResponse struct {
	UserUUID string `json:"user_uuid"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

type loginResponse struct {
	UserUUID  string `json:"user_uuid"`
	Bearer    string `json:"bearer"`
	ExpiresAt int64  `json:"expires_at"`
}

type updateProfileRequest struct {
	Name              *string `json:"name"`
	PrimaryClientUUID *string `json:"primary_client_uuid"`
}

type updateIdentityRequest struct {
	Identity []byte `json:"identity" validate:"required"`
}

type deleteUserRequest struct {
	Password string `json:"password" validate:"required"`
}

type publicUser struct {
	UUID              string  `json:"uuid"`
	Username          string  `json:"username"`
	Name              string  `json:"name"`
	PrimaryClientUUID *string `json:"primary_client_uuid"`
	Identity          []byte  `json:"identity"`
}

type searchResponse struct {
	Users []publicUser `json:"users"`
}

type clientKeysRequest struct {
	SigningKey []byte `json:"signing_key" validate:"required"`
	Signature  []byte `json:"signature" validate:"required"`
}

type clientResponse struct {
	ClientUUID string `json:"client_uuid"`
}

type publicClient struct {
	UUID       string `json:"uuid"`
	UserUUID   string `json:"user_uuid"`
	SigningKey []byte `json:"signing_key"`
	Signature  []byte `json:"signature"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

type clientsResponse struct {
	Clients []publicClient `json:"clients"`
}

type replaceKeyPackagesRequest struct {
	KeyPackages [][]byte `json:"key_packages" validate:"required"`
}

type keyPackageResponse struct {
	KeyPackage []byte `json:"key_package"`
}

type countResponse struct {
	Count int `json:"count"`
}

type messageBody struct {
	Message []byte `json:"message" validate:"required"`
}

type sendMessageRequest struct {
	ClientUUIDs []string    `json:"client_uuids" validate:"required"`
	Message     messageBody `json:"message"`
}

type sendMessageResponse struct {
	Delivered int `json:"delivered"`
}

type deliveredMessage struct {
	ID           uint64 `json:"id"`
	Message      []byte `json:"message"`
	ReceivedDate int64  `json:"received_date"`
}

type messagesResponse struct {
	Messages []deliveredMessage `json:"messages"`
}

type acknowledgeRequest struct {
	Through uint64 `json:"through" validate:"required"`
}

type acknowledgeResponse struct {
	Removed int `json:"removed"`
}

type healthResponse struct {
	Status        string        `json:"status"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Process       *processStats `json:"process,omitempty"`
}

type processStats struct {
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Goroutines int     `json:"goroutines"`
}

func toPublicUser(u domain.PublicUser) publicUser {
	out := publicUser{
		UUID:     u.ID.String(),
		Username: u.Username,
		Name:     u.Name,
		Identity: u.IdentityKey,
	}
	if u.PrimaryClientID != nil {
		out.PrimaryClientUUID = lo.ToPtr(u.PrimaryClientID.String())
	}
	return out
}

func toPublicClient(c domain.Client) publicClient {
	return publicClient{
		UUID:       c.ID.String(),
		UserUUID:   c.UserID.String(),
		SigningKey: c.SigningKey,
		Signature:  c.Signature,
		CreatedAt:  c.CreatedAt.Unix(),
		UpdatedAt:  c.UpdatedAt.Unix(),
	}
}

func toDeliveredMessages(entries []domain.MailboxEntry) []deliveredMessage {
	return lo.Map(entries, func(e domain.MailboxEntry, _ int) deliveredMessage {
		return deliveredMessage{ID: e.Seq, Message: e.Payload, ReceivedDate: e.ReceivedAt.Unix()}
	})
}

func toProcessStats(s observability.ProcessStats) *processStats {
	return &processStats{
		PID:        s.PID,
		Status:     s.Status,
		CPUPercent: s.CPUPercent,
		RSSBytes:   s.RSSBytes,
		Goroutines: s.Goroutines,
	}
}
