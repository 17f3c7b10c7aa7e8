//go:generate go run go.uber.org/mock/mockgen -source=user_index.go -destination=../../mocks/mock_user_index.go -package=mocks
package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldUsername = "username"
	fieldName     = "name"
	fieldID       = "_id"
)

// IUserIndex is the full-text directory used to find other users.
// It is derived from the user records and can be rebuilt from them.
type IUserIndex interface {
	Index(user domain.User) error
	Remove(id uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

type UserIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewUserIndex(writer *bluge.Writer, log *slog.Logger) *UserIndex {
	return &UserIndex{writer: writer, log: log}
}

func (u *UserIndex) Index(user domain.User) error {
	doc := bluge.NewDocument(user.ID.String()).
		AddField(bluge.NewTextField(fieldUsername, user.Username)).
		AddField(bluge.NewTextField(fieldName, user.Name))
	if err := u.writer.Update(doc.ID(), doc); err != nil {
		return errors.Internalf("index user: %v", err)
	}
	return nil
}

func (u *UserIndex) Remove(id uuid.UUID) error {
	if err := u.writer.Delete(bluge.Identifier(id.String())); err != nil {
		return errors.Internalf("unindex user: %v", err)
	}
	return nil
}

// Search matches query against usernames (exact term or prefix) and
// display names, best matches first.
func (u *UserIndex) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []uuid.UUID{}, nil
	}
	reader, err := u.writer.Reader()
	if err != nil {
		return nil, errors.Internalf("open index reader: %v", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField(fieldUsername)).
		AddShould(bluge.NewPrefixQuery(strings.ToLower(query)).SetField(fieldUsername)).
		AddShould(bluge.NewMatchQuery(query).SetField(fieldName)).
		SetMinShould(1)

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, errors.Internalf("search users: %v", err)
	}

	ids := make([]uuid.UUID, 0, limit)
	match, err := matches.Next()
	for err == nil && match != nil {
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != fieldID {
				return true
			}
			id, parseErr := uuid.ParseBytes(value)
			if parseErr != nil {
				visitErr = parseErr
				return false
			}
			ids = append(ids, id)
			return false
		})
		if err == nil {
			err = visitErr
		}
		if err == nil {
			match, err = matches.Next()
		}
	}
	if err != nil {
		return nil, errors.Internalf("read search results: %v", err)
	}
	u.log.Debug("User search", "query", query, "results", len(ids))
	return ids, nil
}
