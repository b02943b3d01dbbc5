package session

import (
	"context"
	"net/http"

	"github.com/shono-io/arangosh/core"
)

// Index returns the description of an index given its full handle.
func (s *Session) Index(ctx context.Context, id string) (map[string]any, error) {
	return s.index(ctx, id, "")
}

func (s *Session) index(ctx context.Context, id string, expectedCollection string) (map[string]any, error) {
	h, err := core.ParseIndexHandle(id, expectedCollection)
	if err != nil {
		return nil, err
	}

	return s.request(ctx, http.MethodGet, h.IndexPath(), nil, nil)
}

// DropIndex drops an index given its full handle. It returns false when the index does not exist.
func (s *Session) DropIndex(ctx context.Context, id string) (bool, error) {
	return s.dropIndex(ctx, id, "")
}

func (s *Session) dropIndex(ctx context.Context, id string, expectedCollection string) (bool, error) {
	h, err := core.ParseIndexHandle(id, expectedCollection)
	if err != nil {
		return false, err
	}

	if _, err := s.request(ctx, http.MethodDelete, h.IndexPath(), nil, nil); err != nil {
		if core.HasErrorNum(err, core.ErrorNumIndexNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
