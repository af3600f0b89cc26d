package server

import (
	"sync"

	"github.com/hivereader/hivereader/feed"
)

// LoaderRegistry holds one feed.Loader per (client session, feed key) so a
// scrolling client keeps its cursor, seen-set and accumulated list across
// requests. Loaders for a session are dropped wholesale when it ends.
type LoaderRegistry struct {
	mu      sync.Mutex
	loaders map[string]map[string]*feed.Loader
}

func NewLoaderRegistry() *LoaderRegistry {
	return &LoaderRegistry{loaders: map[string]map[string]*feed.Loader{}}
}

// Get returns the loader for the given session and feed key, creating it
// with the provided constructor on first use.
func (r *LoaderRegistry) Get(session, key string, create func() *feed.Loader) *feed.Loader {
	r.mu.Lock()
	defer r.mu.Unlock()

	perSession, ok := r.loaders[session]
	if !ok {
		perSession = map[string]*feed.Loader{}
		r.loaders[session] = perSession
	}

	loader, ok := perSession[key]
	if !ok {
		loader = create()
		perSession[key] = loader
	}
	return loader
}

// Drop discards every loader belonging to one session.
func (r *LoaderRegistry) Drop(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loaders, session)
}
