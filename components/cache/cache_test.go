package cache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/internal/testutil"
	"github.com/shono-io/arangosh/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheInit(t *testing.T) {
	fnd := false
	service.GlobalEnvironment().WalkCaches(func(name string, config *service.ConfigView) {
		if name == "arangodb" {
			fnd = true
		}
	})

	assert.True(t, fnd)
}

func newTestCache(tr *testutil.MockTransport) *cache {
	return &cache{s: session.New(tr), collection: "kv", logger: service.MockResources().Logger()}
}

func collectionEnvelope() map[string]any {
	return map[string]any{"id": "1", "name": "kv", "type": float64(2), "status": float64(3)}
}

func TestCache(t *testing.T) {
	t.Run("should read an entry", readEntry)
	t.Run("should report a missing entry", reportMissingEntry)
	t.Run("should insert on set when the entry is missing", insertOnSet)
	t.Run("should refuse to add an existing entry", refuseExistingAdd)
	t.Run("should delete an entry", deleteEntry)
}

func readEntry(t *testing.T) {
	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, "/_api/document/kv/a", map[string]any{"_id": "kv/a", "_key": "a", "value": "hello"})

	v, err := newTestCache(tr).Get(tCtx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)
}

func reportMissingEntry(t *testing.T) {
	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, "/_api/document/kv/a", testutil.ErrorEnvelope(404, core.ErrorNumDocumentNotFound, "document not found"))

	_, err := newTestCache(tr).Get(tCtx, "a")
	assert.ErrorIs(t, err, service.ErrKeyNotFound)
}

func insertOnSet(t *testing.T) {
	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	ttl := time.Minute
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodPut, "/_api/document/kv/a?policy=last", testutil.ErrorEnvelope(404, core.ErrorNumDocumentNotFound, "document not found"))
	tr.Expect(http.MethodGet, "/_api/collection/kv", collectionEnvelope())
	tr.Expect(http.MethodPost, "/_api/document?collection=kv", map[string]any{"_id": "kv/a"})

	require.NoError(t, newTestCache(tr).Set(tCtx, "a", []byte("hello"), &ttl))
	assert.Equal(t, entry{Key: "a", Value: "hello"}, tr.Body(2))
	tr.AssertExpectations(t)
}

func refuseExistingAdd(t *testing.T) {
	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, "/_api/collection/kv", collectionEnvelope())
	tr.Expect(http.MethodPost, "/_api/document?collection=kv", testutil.ErrorEnvelope(409, core.ErrorNumUniqueConstraintViolated, "unique constraint violated"))

	err := newTestCache(tr).Add(tCtx, "a", []byte("hello"), nil)
	assert.ErrorIs(t, err, service.ErrKeyAlreadyExists)
}

func deleteEntry(t *testing.T) {
	tCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodDelete, "/_api/document/kv/a?policy=last", testutil.ErrorEnvelope(404, core.ErrorNumDocumentNotFound, "document not found"))

	assert.NoError(t, newTestCache(tr).Delete(tCtx, "a"))
}
