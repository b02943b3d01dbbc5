package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okEnvelope = map[string]any{"error": false, "code": float64(200)}

func TestDocuments(t *testing.T) {
	t.Run("should send the revision as If-Match", sendRevisionAsIfMatch)
	t.Run("should reject a non string revision", rejectNonStringRevision)
	t.Run("should report a missing document on overwrite", reportMissingOnOverwrite)
	t.Run("should fail on a missing document without overwrite", failMissingWithoutOverwrite)
	t.Run("should default the update flags", defaultUpdateFlags)
	t.Run("should pass explicit update flags", explicitUpdateFlags)
	t.Run("should replace with the last write policy", replaceWithPolicy)
	t.Run("should reject several option values", rejectSeveralOptions)
	t.Run("should not call the server for a malformed handle", skipMalformedHandle)
	t.Run("should treat a missing document as not existing", missingDoesNotExist)
	t.Run("should treat a revision mismatch as not existing", revisionMismatchDoesNotExist)
	t.Run("should reject documents of other collections", rejectOtherCollection)
}

func sendRevisionAsIfMatch(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, "/_api/document/users/jane", map[string]any{"_id": "users/jane", "_rev": "_x1"})

	ref, err := RefOf(map[string]any{"_id": "users/jane", "_rev": "_x1"})
	require.NoError(t, err)

	doc, err := New(tr).Document(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "users/jane", doc["_id"])
	assert.Equal(t, map[string]string{"If-Match": `"_x1"`}, tr.Header(0))
}

func rejectNonStringRevision(t *testing.T) {
	_, err := RefOf(map[string]any{"_id": "users/jane", "_rev": 12})
	assert.ErrorIs(t, err, core.ErrUsage)

	_, err = RefOf(map[string]any{"_rev": "_x1"})
	assert.ErrorIs(t, err, core.ErrUsage)
}

func reportMissingOnOverwrite(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodDelete, "/_api/document/users/jane?policy=last&waitForSync=true", testutil.ErrorEnvelope(404, core.ErrorNumDocumentNotFound, "document not found"))

	removed, err := New(tr).RemoveDocument(context.Background(), Ref("users/jane"), RemoveOptions{Overwrite: true, WaitForSync: true})
	assert.NoError(t, err)
	assert.False(t, removed)
	tr.AssertExpectations(t)
}

func failMissingWithoutOverwrite(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodDelete, "/_api/document/users/jane", testutil.ErrorEnvelope(404, core.ErrorNumDocumentNotFound, "document not found"))

	removed, err := New(tr).RemoveDocument(context.Background(), Ref("users/jane"))
	assert.False(t, removed)
	assert.True(t, core.HasErrorNum(err, core.ErrorNumDocumentNotFound))
	assert.True(t, core.IsNotFound(err))
}

func defaultUpdateFlags(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodPatch, "/_api/document/users/jane?keepNull=true&mergeObjects=true", okEnvelope)

	_, err := New(tr).UpdateDocument(context.Background(), Ref("users/jane"), map[string]any{"age": 40})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": 40}, tr.Body(0))
	assert.Nil(t, tr.Header(0))
}

func explicitUpdateFlags(t *testing.T) {
	keepNull := false
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodPatch, "/_api/document/users/jane?keepNull=false&mergeObjects=true&policy=last&waitForSync=true", okEnvelope)

	_, err := New(tr).UpdateDocument(context.Background(), Ref("users/jane"), map[string]any{"age": nil}, UpdateOptions{
		Overwrite:   true,
		KeepNull:    &keepNull,
		WaitForSync: true,
	})
	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func replaceWithPolicy(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodPut, "/_api/document/users/jane?policy=last", okEnvelope)

	_, err := New(tr).ReplaceDocument(context.Background(), DocumentRef{ID: "users/jane", Rev: "_x1"}, map[string]any{"age": 41}, ReplaceOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"If-Match": `"_x1"`}, tr.Header(0))
}

func rejectSeveralOptions(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	s := New(tr)

	_, err := s.RemoveDocument(context.Background(), Ref("users/jane"), RemoveOptions{}, RemoveOptions{})
	assert.ErrorIs(t, err, core.ErrUsage)

	_, err = s.UpdateDocument(context.Background(), Ref("users/jane"), nil, UpdateOptions{}, UpdateOptions{})
	assert.ErrorIs(t, err, core.ErrUsage)

	assert.Empty(t, tr.Calls)
}

func skipMalformedHandle(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	s := New(tr)

	_, err := s.Document(context.Background(), Ref("users"))
	assert.ErrorIs(t, err, core.ErrMalformedHandle)

	_, err = s.DocumentExists(context.Background(), Ref("users/ja ne"))
	assert.ErrorIs(t, err, core.ErrMalformedHandle)

	_, err = s.RemoveDocument(context.Background(), Ref("a/b/c"))
	assert.ErrorIs(t, err, core.ErrMalformedHandle)

	assert.Empty(t, tr.Calls)
}

func missingDoesNotExist(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodHead, "/_api/document/users/jane", testutil.ErrorEnvelope(404, 404, ""))
	tr.Expect(http.MethodHead, "/_api/document/ghosts/jane", testutil.ErrorEnvelope(404, core.ErrorNumCollectionNotFound, ""))
	tr.Expect(http.MethodHead, "/_api/document/users/john", okEnvelope)
	s := New(tr)

	exists, err := s.DocumentExists(context.Background(), Ref("users/jane"))
	assert.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.DocumentExists(context.Background(), Ref("ghosts/jane"))
	assert.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.DocumentExists(context.Background(), Ref("users/john"))
	assert.NoError(t, err)
	assert.True(t, exists)
}

func revisionMismatchDoesNotExist(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodHead, "/_api/document/users/jane", testutil.ErrorEnvelope(412, 412, ""))
	tr.Expect(http.MethodHead, "/_api/document/users/jane", testutil.ErrorEnvelope(500, 4, "internal"))
	s := New(tr)

	exists, err := s.DocumentExists(context.Background(), DocumentRef{ID: "users/jane", Rev: "_old"})
	assert.NoError(t, err)
	assert.False(t, exists)

	_, err = s.DocumentExists(context.Background(), Ref("users/jane"))
	assert.True(t, core.IsServerError(err))
}

func rejectOtherCollection(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodGet, "/_api/collection/users", collectionEnvelope("1", "users"))
	tr.Expect(http.MethodGet, "/_api/document/users/jane", map[string]any{"_id": "users/jane"})
	s := New(tr)

	c, err := s.Collection(context.Background(), "users")
	require.NoError(t, err)

	_, err = c.Document(context.Background(), "orders/1")
	assert.ErrorIs(t, err, core.ErrCrossCollectionReference)

	doc, err := c.Document(context.Background(), "jane")
	require.NoError(t, err)
	assert.Equal(t, "users/jane", doc["_id"])
	tr.AssertExpectations(t)
}
