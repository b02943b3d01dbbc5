package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shono-io/arangosh/core"
	"github.com/sirupsen/logrus"
)

// collectionProperties are the only properties forwarded when creating a collection.
var collectionProperties = []string{
	"waitForSync",
	"journalSize",
	"isSystem",
	"isVolatile",
	"doCompact",
	"keyOptions",
	"shardKeys",
	"numberOfShards",
	"distributeShardsLike",
	"indexBuckets",
}

// Collections lists all collections of the current database and replaces the collection cache
// with them. A response without a collection list yields nil without an error.
func (s *Session) Collections(ctx context.Context) ([]*Collection, error) {
	result, ok, err := s.fetchCollections(ctx)
	if err != nil || !ok {
		return nil, err
	}

	s.mu.Lock()
	s.replaceCollectionsLocked(result)
	s.mu.Unlock()

	return result, nil
}

func (s *Session) fetchCollections(ctx context.Context) ([]*Collection, bool, error) {
	res, err := s.request(ctx, http.MethodGet, core.CollectionPath(""), nil, nil)
	if err != nil {
		return nil, false, err
	}

	raw, ok := res["collections"]
	if !ok {
		return nil, false, nil
	}

	var descs []CollectionDescriptor
	if err := decode(raw, &descs); err != nil {
		return nil, false, fmt.Errorf("failed to decode collections: %w", err)
	}

	result := make([]*Collection, 0, len(descs))
	for _, desc := range descs {
		result = append(result, newCollection(s, desc))
	}

	return result, true, nil
}

// Collection looks up a collection by name or id. A collection the server does not know yields nil
// without an error.
func (s *Session) Collection(ctx context.Context, idOrName string) (*Collection, error) {
	res, err := s.request(ctx, http.MethodGet, core.CollectionPath(idOrName), nil, nil)
	if err != nil {
		if core.HasErrorNum(err, core.ErrorNumCollectionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return s.registerFrom(res)
}

// ResolveCollection returns the cached proxy for idOrName, looking it up when it is not cached.
func (s *Session) ResolveCollection(ctx context.Context, idOrName string) (*Collection, error) {
	if c := s.cached(idOrName); c != nil {
		return c, nil
	}

	return s.Collection(ctx, idOrName)
}

// CreateCollection creates a collection of the given kind, forwarding only the recognised
// properties. A zero kind creates a document collection.
func (s *Session) CreateCollection(ctx context.Context, name string, properties map[string]any, kind CollectionType) (*Collection, error) {
	if kind == 0 {
		kind = CollectionTypeDocument
	}

	body := map[string]any{
		"name": name,
		"type": kind,
	}

	for _, p := range collectionProperties {
		if v, ok := properties[p]; ok {
			body[p] = v
		}
	}

	res, err := s.request(ctx, http.MethodPost, core.CollectionPath(""), body, nil)
	if err != nil {
		return nil, err
	}

	return s.registerFrom(res)
}

func (s *Session) CreateDocumentCollection(ctx context.Context, name string, properties map[string]any) (*Collection, error) {
	return s.CreateCollection(ctx, name, properties, CollectionTypeDocument)
}

func (s *Session) CreateEdgeCollection(ctx context.Context, name string, properties map[string]any) (*Collection, error) {
	return s.CreateCollection(ctx, name, properties, CollectionTypeEdge)
}

// TruncateCollection removes all documents from a collection.
func (s *Session) TruncateCollection(ctx context.Context, idOrName string) error {
	c, err := s.mustResolve(ctx, idOrName)
	if err != nil {
		return err
	}

	return c.Truncate(ctx)
}

// DropCollection deletes a collection.
func (s *Session) DropCollection(ctx context.Context, idOrName string) error {
	c, err := s.mustResolve(ctx, idOrName)
	if err != nil {
		return err
	}

	return c.Drop(ctx)
}

// FlushCache evicts every cached collection and the database properties, then tries to repopulate
// the collection cache. Failing to repopulate is not an error.
func (s *Session) FlushCache(ctx context.Context) {
	s.mu.Lock()
	s.replaceCollectionsLocked(nil)
	s.properties = nil
	s.mu.Unlock()

	if _, err := s.Collections(ctx); err != nil {
		logrus.Debugf("unable to repopulate the collection cache of %q: %v", s.CurrentDatabase(), err)
	}
}

// CachedCollections returns the proxies currently held in the cache.
func (s *Session) CachedCollections() []*Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Collection, 0, len(s.collections))
	for _, c := range s.collections {
		result = append(result, c)
	}

	return result
}

func (s *Session) mustResolve(ctx context.Context, idOrName string) (*Collection, error) {
	c, err := s.ResolveCollection(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrCollectionNotFound, idOrName)
	}

	return c, nil
}

func (s *Session) cached(idOrName string) *Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[idOrName]; ok {
		return c
	}

	for _, c := range s.collections {
		if c.ID() == idOrName {
			return c
		}
	}

	return nil
}

func (s *Session) registerFrom(res map[string]any) (*Collection, error) {
	var desc CollectionDescriptor
	if err := decode(res, &desc); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}

	if desc.Name == "" {
		return nil, nil
	}

	c := newCollection(s, desc)

	s.mu.Lock()
	if old, ok := s.collections[c.Name()]; ok && old != c {
		old.markStale()
	}
	s.collections[c.Name()] = c
	s.mu.Unlock()

	return c, nil
}

func (s *Session) unregister(c *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.collections[c.Name()]; ok && cur == c {
		delete(s.collections, c.Name())
	}
}

// replaceCollectionsLocked swaps the collection cache; the caller holds the write lock.
func (s *Session) replaceCollectionsLocked(collections []*Collection) {
	next := make(map[string]*Collection, len(collections))
	for _, c := range collections {
		next[c.Name()] = c
	}

	for name, c := range s.collections {
		if next[name] != c {
			c.markStale()
		}
	}

	s.collections = next
}
