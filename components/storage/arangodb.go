package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/session"
	"github.com/sirupsen/logrus"
)

// NewSessionClient serves the storage processor from a session.
func NewSessionClient(s *session.Session) *SessionClient {
	return &SessionClient{s: s}
}

type SessionClient struct {
	s *session.Session
}

func (c *SessionClient) List(ctx context.Context, collection string, filter string, batchSize int) (Cursor, error) {
	cur, err := c.s.QueryAQL(ctx, buildQuery(filter), map[string]any{"@collection": collection}, &session.CursorOptions{
		Count:     true,
		BatchSize: batchSize,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return &sessionCursor{cur}, nil
}

func (c *SessionClient) Get(ctx context.Context, collection string, key string) (map[string]any, error) {
	doc, err := c.s.Document(ctx, session.Ref(core.NewHandle(collection, key).String()))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return doc, nil
}

func (c *SessionClient) Exists(ctx context.Context, collection string, key string) (bool, error) {
	return c.s.DocumentExists(ctx, session.Ref(core.NewHandle(collection, key).String()))
}

func (c *SessionClient) Add(ctx context.Context, collection string, key string, value map[string]any) (*Write, error) {
	col, err := c.s.ResolveCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if col == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrCollectionNotFound, collection)
	}

	// -- override the key
	value["_key"] = key

	if _, err := col.Insert(ctx, value, false); err != nil {
		return nil, err
	}

	changes, err := core.Changelog(nil, core.Content(value))
	if err != nil {
		return nil, err
	}

	return &Write{Document: value, Changed: true, Changelog: changes}, nil
}

// Set stores value under key, replacing the document when it exists. A document that already has
// the content of value is left alone.
func (c *SessionClient) Set(ctx context.Context, collection string, key string, value map[string]any) (*Write, error) {
	current, err := c.Get(ctx, collection, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read current document: %w", err)
	}

	if current == nil {
		return c.Add(ctx, collection, key, value)
	}

	before, after := core.Content(current), core.Content(value)

	same, err := sameContent(before, after)
	if err != nil {
		return nil, err
	}
	if same {
		if logrus.IsLevelEnabled(logrus.TraceLevel) {
			logrus.Tracef("document %s/%s is unchanged, skipping write", collection, key)
		}
		return &Write{Document: current}, nil
	}

	ref, err := session.RefOf(current)
	if err != nil {
		return nil, err
	}

	// -- override the key
	value["_key"] = key

	if _, err := c.s.ReplaceDocument(ctx, ref, value); err != nil {
		return nil, err
	}

	changes, err := core.Changelog(before, after)
	if err != nil {
		return nil, err
	}

	return &Write{Document: value, Changed: true, Changelog: changes}, nil
}

// Merge patches the document under key with value, creating it when it does not exist.
func (c *SessionClient) Merge(ctx context.Context, collection string, key string, value map[string]any) (*Write, error) {
	current, err := c.Get(ctx, collection, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read current document: %w", err)
	}

	if current == nil {
		return c.Add(ctx, collection, key, value)
	}

	ref, err := session.RefOf(current)
	if err != nil {
		return nil, err
	}

	if _, err := c.s.UpdateDocument(ctx, ref, value); err != nil {
		return nil, err
	}

	merged, err := c.Get(ctx, collection, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged document: %w", err)
	}

	changes, err := core.Changelog(core.Content(current), core.Content(merged))
	if err != nil {
		return nil, err
	}

	return &Write{Document: merged, Changed: len(changes) > 0, Changelog: changes}, nil
}

func (c *SessionClient) Delete(ctx context.Context, collection string, key string) (bool, error) {
	return c.s.RemoveDocument(ctx, session.Ref(core.NewHandle(collection, key).String()), session.RemoveOptions{Overwrite: true})
}

func (c *SessionClient) Close(ctx context.Context) error {
	return nil
}

func sameContent(a, b map[string]any) (bool, error) {
	ha, err := core.Fingerprint(a)
	if err != nil {
		return false, err
	}

	hb, err := core.Fingerprint(b)
	if err != nil {
		return false, err
	}

	return ha == hb, nil
}

func buildQuery(filter string) string {
	parts := []string{"FOR d IN @@collection"}

	if len(filter) > 0 {
		parts = append(parts, fmt.Sprintf("FILTER %s", filter))
	}

	parts = append(parts, "RETURN d")

	return strings.Join(parts, " ")
}

type sessionCursor struct {
	c *session.Cursor
}

func (c *sessionCursor) HasNext() bool {
	return c.c.HasNext()
}

func (c *sessionCursor) Read(ctx context.Context) (map[string]any, error) {
	var target map[string]any
	if err := c.c.ReadDocument(ctx, &target); err != nil {
		return nil, err
	}
	return target, nil
}

func (c *sessionCursor) Count() (int64, bool) {
	return c.c.Count()
}

func (c *sessionCursor) Close(ctx context.Context) error {
	return c.c.Dispose(ctx)
}
