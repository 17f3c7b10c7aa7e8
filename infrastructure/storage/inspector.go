package storage

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// InspectRow describes one stored key for operators. Values are never
// decoded: payloads are opaque ciphertext.
type InspectRow struct {
	Key    string
	Kind   string
	Entity string
	Seq    string
	Size   int
}

// ClientPool summarises what the relay holds for a single client.
type ClientPool struct {
	ClientID    uuid.UUID
	KeyPackages int
	Mailbox     int
}

// Inspector gives read-only visibility into the key layout.
type Inspector struct {
	db *badger.DB
}

func NewInspector(db *badger.DB) *Inspector {
	return &Inspector{db: db}
}

// Scan lists up to limit keys under prefix. A limit of zero means no limit.
func (i *Inspector) Scan(ctx context.Context, prefix string, limit int) ([]InspectRow, error) {
	var rows []InspectRow
	err := view(ctx, i.db, func(txn *badger.Txn) error {
		rows = nil
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			rows = append(rows, DescribeKey(string(item.Key()), int(item.ValueSize())))
			if limit > 0 && len(rows) == limit {
				break
			}
		}
		return nil
	})
	return rows, err
}

// ClientPools counts key packages and pending mailbox entries for every
// client, ordered by client id. Exhausted pools are reported with zero.
func (i *Inspector) ClientPools(ctx context.Context) ([]ClientPool, error) {
	var pools []ClientPool
	err := view(ctx, i.db, func(txn *badger.Txn) error {
		byClient := make(map[uuid.UUID]*ClientPool)
		clientKeys, err := keysWithPrefix(txn, []byte(clientPrefix))
		if err != nil {
			return err
		}
		for _, k := range clientKeys {
			id, err := uuid.Parse(string(k[len(clientPrefix):]))
			if err != nil {
				continue
			}
			byClient[id] = &ClientPool{ClientID: id}
		}
		count := func(prefix string, inc func(*ClientPool)) error {
			keys, err := keysWithPrefix(txn, []byte(prefix))
			if err != nil {
				return err
			}
			for _, k := range keys {
				id, err := uuid.Parse(strings.SplitN(string(k[len(prefix):]), ":", 2)[0])
				if err != nil {
					continue
				}
				pool, ok := byClient[id]
				if !ok {
					pool = &ClientPool{ClientID: id}
					byClient[id] = pool
				}
				inc(pool)
			}
			return nil
		}
		if err := count(keyPackagePrefix, func(p *ClientPool) { p.KeyPackages++ }); err != nil {
			return err
		}
		if err := count(mailboxPrefix, func(p *ClientPool) { p.Mailbox++ }); err != nil {
			return err
		}
		pools = make([]ClientPool, 0, len(byClient))
		for _, p := range byClient {
			pools = append(pools, *p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pools, func(a, b int) bool {
		return pools[a].ClientID.String() < pools[b].ClientID.String()
	})
	return pools, nil
}

// DescribeKey classifies a raw key by the prefix it lives under.
func DescribeKey(key string, size int) InspectRow {
	row := InspectRow{Key: key, Kind: "other", Entity: "-", Seq: "-", Size: size}
	kinds := []struct {
		prefix string
		kind   string
	}{
		{userPrefix, "user"},
		{usernamePrefix, "username"},
		{emailPrefix, "email"},
		{clientOwnerPrefix, "client-owner"},
		{clientPrefix, "client"},
		{keyPackagePrefix, "key-package"},
		{mailboxPrefix, "mailbox"},
		{sessionOwnerPrefix, "session-owner"},
		{sessionPrefix, "session"},
		{"gen:", "generation"},
		{"seq:", "sequence"},
	}
	for _, k := range kinds {
		if !strings.HasPrefix(key, k.prefix) {
			continue
		}
		row.Kind = k.kind
		rest := strings.Split(key[len(k.prefix):], ":")
		if rest[0] != "" {
			row.Entity = rest[len(rest)-1]
		}
		if k.prefix == keyPackagePrefix || k.prefix == mailboxPrefix {
			row.Entity = rest[0]
			if len(rest) == 2 {
				if seq, err := strconv.ParseUint(rest[1], 10, 64); err == nil {
					row.Seq = strconv.FormatUint(seq, 10)
				}
			}
		}
		return row
	}
	return row
}
