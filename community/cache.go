package community

import (
	"context"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/hivereader/hivereader/model"
	Logger "github.com/hivereader/hivereader/utils/log"
)

const (
	// DefaultListTTL is how long the in-memory full community list is
	// trusted before a refetch.
	DefaultListTTL = 24 * time.Hour
	// DefaultSubscriptionTTL is how long one user's subscription set is
	// trusted before a refetch.
	DefaultSubscriptionTTL = 5 * time.Minute
)

// Fetcher is the remote content API surface the cache depends on.
type Fetcher interface {
	ListCommunities(ctx context.Context) ([]*model.CommunityRecord, error)
	SearchCommunities(ctx context.Context, query string, limit int) ([]*model.CommunityRecord, error)
	ListSubscriptions(ctx context.Context, username string) ([]string, error)
}

// Mirror is the durable copy of the full community list. Load returns
// (nil, nil) when no trustworthy copy exists (absent, expired, or written by
// a different schema version); a stored copy is never partially trusted.
type Mirror interface {
	Load(ctx context.Context) ([]*model.CommunityRecord, error)
	Store(ctx context.Context, records []*model.CommunityRecord) error
}

type subscriptionEntry struct {
	set       model.SubscriptionSet
	fetchedAt time.Time
}

/*

Cache holds community metadata and per-user subscription sets.

The full list is populated once per session from the mirror or the remote
API and trusted for DefaultListTTL. Subscription sets are fetched lazily per
username and trusted for DefaultSubscriptionTTL, or until Invalidate is
called for that username (which the broadcast gateway does after any
successful subscribe/unsubscribe).

Concurrent identical fetches are coalesced: N callers hitting a cold cache
trigger exactly one network fetch and share its result.

Construct once with NewCache and pass by reference; do not keep a package
level singleton, the injected clock exists so TTL behavior is testable.

*/
type Cache struct {
	fetcher Fetcher
	mirror  Mirror
	now     func() time.Time

	listTTL time.Duration
	subTTL  time.Duration

	group singleflight.Group

	mu            sync.Mutex
	all           []*model.CommunityRecord
	byName        map[string]*model.CommunityRecord
	allFetchedAt  time.Time
	subscriptions map[string]subscriptionEntry
}

// Option mutates a Cache under construction.
type Option func(*Cache)

// WithClock injects a fake clock for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithListTTL overrides the full-list TTL.
func WithListTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.listTTL = ttl }
}

// WithSubscriptionTTL overrides the per-user subscription TTL.
func WithSubscriptionTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.subTTL = ttl }
}

// NewCache builds a cache around the given remote fetcher and durable
// mirror. mirror may be nil, in which case the cache is memory-only.
func NewCache(fetcher Fetcher, mirror Mirror, opts ...Option) *Cache {
	c := &Cache{
		fetcher:       fetcher,
		mirror:        mirror,
		now:           time.Now,
		listTTL:       DefaultListTTL,
		subTTL:        DefaultSubscriptionTTL,
		subscriptions: map[string]subscriptionEntry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAll returns every known community. Served from memory while fresh;
// otherwise one fetch (mirror first, then remote) is performed no matter how
// many callers are waiting.
func (c *Cache) ListAll(ctx context.Context) ([]*model.CommunityRecord, error) {
	c.mu.Lock()
	if c.all != nil && c.now().Sub(c.allFetchedAt) < c.listTTL {
		defer c.mu.Unlock()
		return copyRecords(c.all), nil
	}
	c.mu.Unlock()

	_, err, _ := c.group.Do("list_all", func() (interface{}, error) {
		return nil, c.refreshAll(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return copyRecords(c.all), nil
}

// refreshAll populates the in-memory list from the mirror, falling back to
// the remote API. Runs inside the singleflight group.
func (c *Cache) refreshAll(ctx context.Context) error {
	records, err := c.loadMirror(ctx)
	if err != nil || records == nil {
		records, err = c.fetcher.ListCommunities(ctx)
		if err != nil {
			return errors.Wrap(err, "fail to fetch community list")
		}
		for _, record := range records {
			record.BuildSearchIndex()
		}
		c.storeMirror(ctx, records)
	}

	byName := make(map[string]*model.CommunityRecord, len(records))
	for _, record := range records {
		byName[record.Name] = record
	}

	c.mu.Lock()
	c.all = records
	c.byName = byName
	c.allFetchedAt = c.now()
	c.mu.Unlock()
	return nil
}

func (c *Cache) loadMirror(ctx context.Context) ([]*model.CommunityRecord, error) {
	if c.mirror == nil {
		return nil, nil
	}
	records, err := c.mirror.Load(ctx)
	if err != nil {
		// A broken mirror only costs us a remote fetch.
		Logger.Log.Warn("fail to load community list mirror: ", err)
		return nil, err
	}
	return records, nil
}

func (c *Cache) storeMirror(ctx context.Context, records []*model.CommunityRecord) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Store(ctx, records); err != nil {
		Logger.Log.Warn("fail to store community list mirror: ", err)
	}
}

// FindByName resolves one community. Memory first, then a full-list fetch,
// then a synthesized placeholder record flagged IsBasic so callers can tell
// it apart from authoritative data. Never fails for an unknown name.
func (c *Cache) FindByName(ctx context.Context, name string) *model.CommunityRecord {
	c.mu.Lock()
	record := c.byName[name]
	c.mu.Unlock()
	if record != nil {
		return cloneRecord(record)
	}

	if _, err := c.ListAll(ctx); err != nil {
		Logger.Log.Warn("fail to list communities while resolving ", name, ": ", err)
	}

	c.mu.Lock()
	record = c.byName[name]
	c.mu.Unlock()
	if record != nil {
		return cloneRecord(record)
	}
	return model.NewBasicCommunityRecord(name)
}

// GetSubscriptions returns the set of communities the user subscribes to,
// cached per username for the subscription TTL. Callers get their own copy of
// the set; like ListAll, the cached entry is never handed out directly.
func (c *Cache) GetSubscriptions(ctx context.Context, username string) (model.SubscriptionSet, error) {
	c.mu.Lock()
	entry, ok := c.subscriptions[username]
	if ok && c.now().Sub(entry.fetchedAt) < c.subTTL {
		c.mu.Unlock()
		return entry.set.Clone(), nil
	}
	c.mu.Unlock()

	res, err, _ := c.group.Do("subscriptions/"+username, func() (interface{}, error) {
		names, err := c.fetcher.ListSubscriptions(ctx, username)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to fetch subscriptions for %s", username)
		}
		set := model.NewSubscriptionSet(names)
		c.mu.Lock()
		c.subscriptions[username] = subscriptionEntry{set: set, fetchedAt: c.now()}
		c.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(model.SubscriptionSet).Clone(), nil
}

// Invalidate drops the cached subscription set for the user. Called after a
// successful subscribe/unsubscribe so the next read reflects the change even
// inside the TTL window.
func (c *Cache) Invalidate(username string) {
	c.mu.Lock()
	delete(c.subscriptions, username)
	c.mu.Unlock()
	c.group.Forget("subscriptions/" + username)
}

func cloneRecord(record *model.CommunityRecord) *model.CommunityRecord {
	out := &model.CommunityRecord{}
	copier.Copy(out, record)
	return out
}

func copyRecords(records []*model.CommunityRecord) []*model.CommunityRecord {
	out := make([]*model.CommunityRecord, 0, len(records))
	for _, record := range records {
		out = append(out, cloneRecord(record))
	}
	return out
}
