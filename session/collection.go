package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/shono-io/arangosh/core"
)

type CollectionType int

const (
	CollectionTypeDocument CollectionType = 2
	CollectionTypeEdge     CollectionType = 3
)

type CollectionStatus int

const (
	// CollectionStatusUnknown is reported by proxies evicted from the session cache.
	CollectionStatusUnknown   CollectionStatus = 0
	CollectionStatusNewBorn   CollectionStatus = 1
	CollectionStatusUnloaded  CollectionStatus = 2
	CollectionStatusLoaded    CollectionStatus = 3
	CollectionStatusUnloading CollectionStatus = 4
	CollectionStatusDeleted   CollectionStatus = 5
	CollectionStatusLoading   CollectionStatus = 6
)

// CollectionDescriptor is the collection description returned by the server.
type CollectionDescriptor struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     CollectionType   `json:"type"`
	Status   CollectionStatus `json:"status"`
	IsSystem bool             `json:"isSystem"`
}

// Collection is a proxy for one collection of the session's database.
type Collection struct {
	s      *Session
	id     string
	name   string
	typ    CollectionType
	system bool
	status atomic.Int32
}

func newCollection(s *Session, desc CollectionDescriptor) *Collection {
	c := &Collection{
		s:      s,
		id:     desc.ID,
		name:   desc.Name,
		typ:    desc.Type,
		system: desc.IsSystem,
	}
	c.status.Store(int32(desc.Status))

	return c
}

func (c *Collection) ID() string {
	return c.id
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Type() CollectionType {
	return c.typ
}

func (c *Collection) IsSystem() bool {
	return c.system
}

func (c *Collection) Status() CollectionStatus {
	return CollectionStatus(c.status.Load())
}

// Stale reports whether the proxy was evicted from the session cache.
func (c *Collection) Stale() bool {
	return c.Status() == CollectionStatusUnknown
}

func (c *Collection) String() string {
	return fmt.Sprintf("[collection %q id %s]", c.name, c.id)
}

func (c *Collection) markStale() {
	c.status.Store(int32(CollectionStatusUnknown))
}

func (c *Collection) endpoint(suffix string) string {
	u := "/_api/collection/" + url.PathEscape(c.name)
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (c *Collection) updateStatus(env map[string]any) {
	var desc CollectionDescriptor
	if err := decode(env, &desc); err == nil && desc.Status != CollectionStatusUnknown {
		c.status.Store(int32(desc.Status))
	}
}

// Truncate removes all documents of the collection.
func (c *Collection) Truncate(ctx context.Context) error {
	res, err := c.s.request(ctx, http.MethodPut, c.endpoint("truncate"), nil, nil)
	if err != nil {
		return err
	}

	c.updateStatus(res)
	return nil
}

// Drop deletes the collection and evicts it from the session cache.
func (c *Collection) Drop(ctx context.Context) error {
	if _, err := c.s.request(ctx, http.MethodDelete, c.endpoint(""), nil, nil); err != nil {
		return err
	}

	c.status.Store(int32(CollectionStatusDeleted))
	c.s.unregister(c)
	return nil
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	res, err := c.s.request(ctx, http.MethodGet, c.endpoint("count"), nil, nil)
	if err != nil {
		return 0, err
	}

	var out struct {
		Count int64 `json:"count"`
	}
	if err := decode(res, &out); err != nil {
		return 0, fmt.Errorf("failed to decode count: %w", err)
	}

	return out.Count, nil
}

// Insert stores a new document and returns its meta data (_id, _key, _rev).
func (c *Collection) Insert(ctx context.Context, doc any, waitForSync bool) (map[string]any, error) {
	u := core.AppendQuery("/_api/document", "collection", c.name)
	u = core.AppendSyncFlag(u, waitForSync)

	return c.s.request(ctx, http.MethodPost, u, doc, nil)
}

// Document reads a document of this collection by key or full handle.
func (c *Collection) Document(ctx context.Context, keyOrID string) (map[string]any, error) {
	return c.s.document(ctx, Ref(c.qualify(keyOrID)), c.name)
}

// Exists checks whether a document of this collection exists.
func (c *Collection) Exists(ctx context.Context, keyOrID string) (bool, error) {
	return c.s.documentExists(ctx, Ref(c.qualify(keyOrID)), c.name)
}

// Index returns an index of this collection, accepting a bare index key or a full handle.
func (c *Collection) Index(ctx context.Context, id string) (map[string]any, error) {
	return c.s.index(ctx, id, c.name)
}

// DropIndex drops an index of this collection; false means it did not exist.
func (c *Collection) DropIndex(ctx context.Context, id string) (bool, error) {
	return c.s.dropIndex(ctx, id, c.name)
}

func (c *Collection) qualify(keyOrID string) string {
	if core.IsValidKey(keyOrID) {
		return c.name + "/" + keyOrID
	}
	return keyOrID
}
