package feed

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/hivereader/hivereader/model"
	Logger "github.com/hivereader/hivereader/utils/log"
)

// DefaultPageSize is the batch size requested from the remote API when the
// caller does not specify one.
const DefaultPageSize = 20

// FetchPageFunc fetches one raw page starting after the given cursor. It is
// the remote content API collaborator, injected so the loader stays
// independent of any particular endpoint.
type FetchPageFunc func(ctx context.Context, cursor model.Cursor, limit int) ([]*model.FeedItem, error)

// Batch is the result of one LoadNext call: the newly visible items (already
// de-duplicated against everything the loader returned before) and whether
// another page is worth requesting.
type Batch struct {
	Items   []*model.FeedItem `json:"items"`
	HasMore bool              `json:"has_more"`
}

// State of a loader between calls.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateExhausted
	StateErrored
)

type flight struct {
	done  chan struct{}
	batch *Batch
	err   error
}

/*

Loader drives "load next batch" pagination over one feed.

Guarantees:
  - at most one fetch in flight per loader; a LoadNext issued while another
    is loading waits for and shares that result instead of issuing a second
    fetch for the same cursor
  - no item with the same (author, permlink) key is ever returned twice in
    one loader session, even when backend pages overlap at boundaries
  - a page whose items have all been seen before terminates pagination, so
    a backend that keeps replaying the same page can never loop the loader
  - a fetch error leaves cursor and seen-set untouched; retrying resumes
    from the same position
  - Reset discards results of any still-outstanding fetch (generation check)
    so post-reset lists are never polluted with stale items

*/
type Loader struct {
	mu sync.Mutex

	fetch    FetchPageFunc
	pageSize int

	state      State
	cursor     model.Cursor
	seen       map[string]bool
	items      []*model.FeedItem
	generation int
	inflight   *flight
}

// NewLoader builds an idle loader positioned at the given starting cursor.
// pageSize <= 0 falls back to DefaultPageSize.
func NewLoader(fetch FetchPageFunc, start model.Cursor, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{
		fetch:    fetch,
		pageSize: pageSize,
		cursor:   start,
		seen:     map[string]bool{},
	}
}

// State returns the loader's current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight != nil {
		return StateLoading
	}
	return l.state
}

// Items returns the accumulated de-duplicated list so far.
func (l *Loader) Items() []*model.FeedItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*model.FeedItem, len(l.items))
	copy(out, l.items)
	return out
}

// LoadNext fetches, filters and accumulates the next page. After exhaustion
// it keeps returning an empty batch with HasMore=false without touching the
// network.
func (l *Loader) LoadNext(ctx context.Context) (*Batch, error) {
	l.mu.Lock()
	if l.state == StateExhausted {
		l.mu.Unlock()
		return &Batch{Items: []*model.FeedItem{}, HasMore: false}, nil
	}
	if f := l.inflight; f != nil {
		// Another LoadNext is already fetching this cursor; share its result.
		l.mu.Unlock()
		select {
		case <-f.done:
			return f.batch, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	l.inflight = f
	cursor := l.cursor
	generation := l.generation
	l.mu.Unlock()

	raw, err := l.fetch(ctx, cursor, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(f.done)
	if l.inflight == f {
		l.inflight = nil
	}

	if l.generation != generation {
		// Loader was reset while the fetch was outstanding. Drop the result
		// on the floor so it can't leak into the fresh list.
		Logger.Log.Info("discarding stale feed batch from generation ", generation)
		f.batch = &Batch{Items: []*model.FeedItem{}, HasMore: true}
		return f.batch, nil
	}

	if err != nil {
		l.state = StateErrored
		f.err = errors.Wrap(err, "fail to fetch next feed page")
		return nil, f.err
	}

	f.batch = l.accumulate(raw)
	return f.batch, nil
}

// accumulate applies the dedup and exhaustion rules to one raw batch.
// Caller must hold l.mu.
func (l *Loader) accumulate(raw []*model.FeedItem) *Batch {
	if len(raw) == 0 {
		l.state = StateExhausted
		return &Batch{Items: []*model.FeedItem{}, HasMore: false}
	}

	fresh := []*model.FeedItem{}
	for _, item := range raw {
		key := item.Key()
		if l.seen[key] {
			continue
		}
		l.seen[key] = true
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 {
		// Every item of a non-empty page was seen before: the backend is
		// replaying old pages. Treat as end of feed to guarantee termination.
		l.state = StateExhausted
		return &Batch{Items: []*model.FeedItem{}, HasMore: false}
	}

	l.items = append(l.items, fresh...)
	l.cursor = l.cursor.After(raw[len(raw)-1])

	hasMore := len(raw) >= l.pageSize
	if hasMore {
		l.state = StateIdle
	} else {
		l.state = StateExhausted
	}
	return &Batch{Items: fresh, HasMore: hasMore}
}

// Reset clears the accumulated list, seen-set and cursor, returning the
// loader to idle at the given start position. Used when the sort order or
// filter changes.
func (l *Loader) Reset(start model.Cursor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.state = StateIdle
	l.cursor = start
	l.seen = map[string]bool{}
	l.items = nil
	l.inflight = nil
}
