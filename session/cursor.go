package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	driver "github.com/arangodb/go-driver"
	"github.com/dustin/go-humanize"
)

var errCursorWithoutID = errors.New("cursor response announces more results but carries no cursor id")

type cursorBatch struct {
	Result  []any          `json:"result"`
	HasMore bool           `json:"hasMore"`
	ID      string         `json:"id"`
	Count   *int64         `json:"count"`
	Extra   map[string]any `json:"extra"`
}

// Cursor iterates the results of a query. Results arrive in batches; when the last item of a batch
// is handed out and the server has more, the next batch is fetched in the same call.
//
// A Cursor is meant to be used by a single goroutine.
type Cursor struct {
	s        *Session
	database string

	batch   []any
	pos     int
	hasMore bool
	id      string

	count *int64
	extra map[string]any

	batches int
	read    int64
}

func newCursor(s *Session, database string, res map[string]any) (*Cursor, error) {
	var b cursorBatch
	if err := decode(res, &b); err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}

	if b.HasMore && b.ID == "" {
		return nil, errCursorWithoutID
	}

	c := &Cursor{
		s:        s,
		database: database,
		count:    b.Count,
	}
	c.install(b)

	return c, nil
}

func (c *Cursor) install(b cursorBatch) {
	c.batch = b.Result
	c.pos = 0
	c.hasMore = b.HasMore
	c.batches++

	// the server drops its cursor once the last batch went out
	if b.HasMore {
		if b.ID != "" {
			c.id = b.ID
		}
	} else {
		c.id = ""
	}

	if b.Extra != nil {
		c.extra = b.Extra
	}
}

// HasNext reports whether Next will return an item.
func (c *Cursor) HasNext() bool {
	return c.pos < len(c.batch)
}

// Next returns the next item. It fails with driver.NoMoreDocumentsError once the cursor is
// exhausted. When the next batch cannot be fetched the item is not consumed.
func (c *Cursor) Next(ctx context.Context) (any, error) {
	if !c.HasNext() {
		return nil, driver.NoMoreDocumentsError{}
	}

	item := c.batch[c.pos]

	if c.pos == len(c.batch)-1 && c.hasMore && c.id != "" {
		if err := c.fetch(ctx); err != nil {
			return nil, err
		}
	} else {
		c.pos++
	}

	c.read++
	return item, nil
}

// ReadDocument decodes the next item into result.
func (c *Cursor) ReadDocument(ctx context.Context, result any) error {
	item, err := c.Next(ctx)
	if err != nil {
		return err
	}

	return decode(item, result)
}

// ToArray drains the cursor.
func (c *Cursor) ToArray(ctx context.Context) ([]any, error) {
	var result []any
	for c.HasNext() {
		item, err := c.Next(ctx)
		if err != nil {
			return result, err
		}
		result = append(result, item)
	}

	return result, nil
}

// Dispose releases the server side cursor, if there still is one. Calling it again does nothing.
func (c *Cursor) Dispose(ctx context.Context) error {
	if c.id == "" {
		return nil
	}

	if _, err := c.s.request(ctx, http.MethodDelete, c.path(), nil, nil); err != nil {
		return err
	}

	c.id = ""
	c.hasMore = false
	return nil
}

// Count returns the total number of results, available only when counting was requested.
func (c *Cursor) Count() (int64, bool) {
	if c.count == nil {
		return 0, false
	}
	return *c.count, true
}

// Extra returns the extra data the server sent along, such as execution statistics.
func (c *Cursor) Extra() map[string]any {
	if c.extra == nil {
		return map[string]any{}
	}
	return c.extra
}

// ID returns the server side cursor id; it is empty once the server holds no more results.
func (c *Cursor) ID() string {
	return c.id
}

// Batches returns the number of batches received so far.
func (c *Cursor) Batches() int {
	return c.batches
}

// Read returns the number of items handed out so far.
func (c *Cursor) Read() int64 {
	return c.read
}

func (c *Cursor) String() string {
	result := "[cursor"
	if c.id != "" {
		result += " " + c.id
	}
	if n, ok := c.Count(); ok {
		result += ", count: " + humanize.Comma(n)
	}
	result += ", read: " + humanize.Comma(c.read)
	result += fmt.Sprintf(", hasMore: %t]", c.HasNext())

	return result
}

func (c *Cursor) fetch(ctx context.Context) error {
	res, err := c.s.request(ctx, http.MethodPut, c.path(), nil, nil)
	if err != nil {
		return err
	}

	var b cursorBatch
	if err := decode(res, &b); err != nil {
		return fmt.Errorf("failed to decode cursor batch: %w", err)
	}

	c.install(b)
	return nil
}

func (c *Cursor) path() string {
	return "/_db/" + url.PathEscape(c.database) + "/_api/cursor/" + url.PathEscape(c.id)
}
