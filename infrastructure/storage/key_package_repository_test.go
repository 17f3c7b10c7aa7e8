package storage

import (
	"bubble-relay/errors"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func payloads(prefix string, n int) [][]byte {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, []byte(fmt.Sprintf("%s-%d", prefix, i)))
	}
	return out
}

func TestKeyPackageRepository_FetchConsumesInOrder(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, client.ID, payloads("kp", 3)))
	count, err := f.keyPackages.CountKeyPackages(ctx, client.ID)
	req.NoError(err)
	req.Equal(3, count)

	var lastSeq uint64
	for i := 0; i < 3; i++ {
		kp, err := f.keyPackages.FetchKeyPackage(ctx, client.ID)
		req.NoError(err)
		req.Equal([]byte(fmt.Sprintf("kp-%d", i)), kp.Payload)
		req.Equal(client.ID, kp.ClientID)
		req.Greater(kp.Seq, lastSeq)
		lastSeq = kp.Seq
	}

	_, err = f.keyPackages.FetchKeyPackage(ctx, client.ID)
	req.ErrorIs(err, errors.ErrNoKeyPackage)
	req.ErrorIs(err, errors.ErrNotFound)

	count, err = f.keyPackages.CountKeyPackages(ctx, client.ID)
	req.NoError(err)
	req.Zero(count)
}

func TestKeyPackageRepository_ReplaceDiscardsPreviousPool(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, client.ID, payloads("old", 5)))
	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, client.ID, payloads("new", 2)))

	count, err := f.keyPackages.CountKeyPackages(ctx, client.ID)
	req.NoError(err)
	req.Equal(2, count)

	kp, err := f.keyPackages.FetchKeyPackage(ctx, client.ID)
	req.NoError(err)
	req.Equal([]byte("new-0"), kp.Payload)
}

func TestKeyPackageRepository_PoolsAreIsolated(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	c1 := f.createClient(t, alice)
	c2 := f.createClient(t, alice)

	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, c1.ID, payloads("c1", 1)))

	_, err := f.keyPackages.FetchKeyPackage(ctx, c2.ID)
	req.ErrorIs(err, errors.ErrNoKeyPackage)

	kp, err := f.keyPackages.FetchKeyPackage(ctx, c1.ID)
	req.NoError(err)
	req.Equal([]byte("c1-0"), kp.Payload)
}

func TestKeyPackageRepository_UnknownClient(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	unknown := uuid.New()

	req.ErrorIs(f.keyPackages.ReplaceKeyPackages(ctx, unknown, payloads("kp", 1)), errors.ErrNotFound)
	_, err := f.keyPackages.FetchKeyPackage(ctx, unknown)
	req.ErrorIs(err, errors.ErrNotFound)
	req.NotErrorIs(err, errors.ErrNoKeyPackage)
	_, err = f.keyPackages.CountKeyPackages(ctx, unknown)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestKeyPackageRepository_ConcurrentFetchNeverDuplicates(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	const (
		packages = 40
		fetchers = 8
	)
	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, client.ID, payloads("kp", packages)))

	var (
		mu      sync.Mutex
		seen    = make(map[string]int)
		empties int
		wg      sync.WaitGroup
	)
	for w := 0; w < fetchers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				kp, err := f.keyPackages.FetchKeyPackage(ctx, client.ID)
				mu.Lock()
				if errors.Is(err, errors.ErrNoKeyPackage) {
					empties++
					mu.Unlock()
					return
				}
				if err == nil {
					seen[string(kp.Payload)]++
				}
				mu.Unlock()
				if err != nil && !errors.Is(err, errors.ErrInternal) {
					return
				}
			}
		}()
	}
	wg.Wait()

	req.Len(seen, packages)
	for payload, n := range seen {
		req.Equal(1, n, payload)
	}
	req.Equal(fetchers, empties)
}

func TestKeyPackageRepository_ReplaceRacingFetchSeesOnePool(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	const (
		oldPool  = 30
		newPool  = 10
		fetchers = 4
	)
	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, client.ID, payloads("old", oldPool)))

	var (
		perFetcher = make([][]string, fetchers)
		wg         sync.WaitGroup
		start      = make(chan struct{})
	)
	for w := 0; w < fetchers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			for {
				kp, err := f.keyPackages.FetchKeyPackage(ctx, client.ID)
				if errors.Is(err, errors.ErrNoKeyPackage) {
					return
				}
				if errors.Is(err, errors.ErrInternal) {
					continue
				}
				if err != nil {
					t.Error(err)
					return
				}
				perFetcher[w] = append(perFetcher[w], string(kp.Payload))
			}
		}(w)
	}

	replaced := make(chan error, 1)
	go func() {
		<-start
		var err error
		for attempt := 0; attempt < 5; attempt++ {
			if err = f.keyPackages.ReplaceKeyPackages(ctx, client.ID, payloads("new", newPool)); !errors.Is(err, errors.ErrInternal) {
				break
			}
		}
		replaced <- err
	}()
	close(start)
	wg.Wait()
	req.NoError(<-replaced)

	// Fetchers may have drained the pool before the replace landed; what is
	// left must then be the untouched new pool.
	remaining, err := f.keyPackages.CountKeyPackages(ctx, client.ID)
	req.NoError(err)

	seen := make(map[string]bool)
	var olds, news int
	for _, payload := range lo.Flatten(perFetcher) {
		req.False(seen[payload], payload)
		seen[payload] = true
		switch {
		case strings.HasPrefix(payload, "old-"):
			olds++
		case strings.HasPrefix(payload, "new-"):
			news++
		default:
			req.Failf("unexpected payload", "%s", payload)
		}
	}
	req.LessOrEqual(olds, oldPool)
	req.Equal(newPool, news+remaining)

	// A fetcher that got a new package never gets an old one afterwards
	for _, fetched := range perFetcher {
		sawNew := false
		for _, payload := range fetched {
			if strings.HasPrefix(payload, "new-") {
				sawNew = true
				continue
			}
			req.False(sawNew, "old package %s fetched after the replace", payload)
		}
	}
}
