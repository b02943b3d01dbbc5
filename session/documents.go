package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shono-io/arangosh/core"
)

// DocumentRef selects a document by handle. A non-empty Rev makes the request conditional on the
// document still having that revision.
type DocumentRef struct {
	ID  string
	Rev string
}

// Ref selects a document by handle alone.
func Ref(id string) DocumentRef {
	return DocumentRef{ID: id}
}

// RefOf selects the document a previously read document came from, using its _id and _rev.
func RefOf(doc map[string]any) (DocumentRef, error) {
	id, ok := doc["_id"].(string)
	if !ok {
		return DocumentRef{}, fmt.Errorf("%w: document has no _id", core.ErrUsage)
	}

	ref := DocumentRef{ID: id}
	if rev, ok := doc["_rev"]; ok {
		s, ok := rev.(string)
		if !ok {
			return DocumentRef{}, fmt.Errorf("%w: _rev must be a string, got %T", core.ErrUsage, rev)
		}
		ref.Rev = s
	}

	return ref, nil
}

func (r DocumentRef) header() map[string]string {
	if r.Rev == "" {
		return nil
	}

	b, _ := json.Marshal(r.Rev)
	return map[string]string{"If-Match": string(b)}
}

type RemoveOptions struct {
	// Overwrite removes the document whatever its revision and treats a missing document as a
	// regular outcome.
	Overwrite   bool
	WaitForSync bool
}

type ReplaceOptions struct {
	Overwrite   bool
	WaitForSync bool
}

type UpdateOptions struct {
	Overwrite bool
	// KeepNull keeps attributes set to null in the patch; defaults to true.
	KeepNull *bool
	// MergeObjects merges nested objects instead of replacing them; defaults to true.
	MergeObjects *bool
	WaitForSync  bool
}

// Document reads a document.
func (s *Session) Document(ctx context.Context, ref DocumentRef) (map[string]any, error) {
	return s.document(ctx, ref, "")
}

func (s *Session) document(ctx context.Context, ref DocumentRef, expectedCollection string) (map[string]any, error) {
	h, err := core.ParseDocumentHandle(ref.ID, expectedCollection)
	if err != nil {
		return nil, err
	}

	return s.request(ctx, http.MethodGet, h.DocumentPath(), nil, ref.header())
}

// DocumentExists checks whether a document exists. A revision mismatch counts as not existing.
func (s *Session) DocumentExists(ctx context.Context, ref DocumentRef) (bool, error) {
	return s.documentExists(ctx, ref, "")
}

func (s *Session) documentExists(ctx context.Context, ref DocumentRef, expectedCollection string) (bool, error) {
	h, err := core.ParseDocumentHandle(ref.ID, expectedCollection)
	if err != nil {
		return false, err
	}

	_, err = s.request(ctx, http.MethodHead, h.DocumentPath(), nil, ref.header())
	if err != nil {
		if core.HasErrorNum(err, core.ErrorNumCollectionNotFound, http.StatusNotFound) || core.IsPreconditionFailed(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// RemoveDocument deletes a document. It returns false when Overwrite is set and the document does
// not exist.
func (s *Session) RemoveDocument(ctx context.Context, ref DocumentRef, opts ...RemoveOptions) (bool, error) {
	opt, err := single(opts)
	if err != nil {
		return false, err
	}

	h, err := core.ParseDocumentHandle(ref.ID, "")
	if err != nil {
		return false, err
	}

	u := h.DocumentPath()
	if opt.Overwrite {
		u = core.AppendQuery(u, "policy", "last")
	}
	u = core.AppendSyncFlag(u, opt.WaitForSync)

	if _, err := s.request(ctx, http.MethodDelete, u, nil, ref.header()); err != nil {
		if opt.Overwrite && core.HasErrorNum(err, core.ErrorNumDocumentNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// ReplaceDocument replaces a document with data and returns the new meta data.
func (s *Session) ReplaceDocument(ctx context.Context, ref DocumentRef, data any, opts ...ReplaceOptions) (map[string]any, error) {
	opt, err := single(opts)
	if err != nil {
		return nil, err
	}

	h, err := core.ParseDocumentHandle(ref.ID, "")
	if err != nil {
		return nil, err
	}

	u := h.DocumentPath()
	if opt.Overwrite {
		u = core.AppendQuery(u, "policy", "last")
	}
	u = core.AppendSyncFlag(u, opt.WaitForSync)

	return s.request(ctx, http.MethodPut, u, data, ref.header())
}

// UpdateDocument patches a document with data and returns the new meta data.
func (s *Session) UpdateDocument(ctx context.Context, ref DocumentRef, data any, opts ...UpdateOptions) (map[string]any, error) {
	opt, err := single(opts)
	if err != nil {
		return nil, err
	}

	h, err := core.ParseDocumentHandle(ref.ID, "")
	if err != nil {
		return nil, err
	}

	u := h.DocumentPath()
	u = core.AppendQuery(u, "keepNull", fmt.Sprint(boolOr(opt.KeepNull, true)))
	u = core.AppendQuery(u, "mergeObjects", fmt.Sprint(boolOr(opt.MergeObjects, true)))
	if opt.Overwrite {
		u = core.AppendQuery(u, "policy", "last")
	}
	u = core.AppendSyncFlag(u, opt.WaitForSync)

	return s.request(ctx, http.MethodPatch, u, data, ref.header())
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
