package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/shono-io/arangosh/core"
	"github.com/sirupsen/logrus"
)

// StatementData describes a query and how its cursor is to be built.
type StatementData struct {
	Query     string         `json:"query"`
	BindVars  map[string]any `json:"bindVars,omitempty"`
	Count     bool           `json:"count,omitempty"`
	BatchSize int            `json:"batchSize,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Cache     *bool          `json:"cache,omitempty"`
}

// CursorOptions control counting and paging of a query cursor.
type CursorOptions struct {
	Count     bool
	BatchSize int
}

type Statement struct {
	s    *Session
	data StatementData
}

func (s *Session) CreateStatement(data StatementData) *Statement {
	return &Statement{s: s, data: data}
}

// Query executes a fully described query.
func (s *Session) Query(ctx context.Context, data StatementData) (*Cursor, error) {
	return s.CreateStatement(data).Execute(ctx)
}

// QueryAQL assembles a query from its parts and executes it. A "cache" entry in options also selects
// the query result cache.
func (s *Session) QueryAQL(ctx context.Context, query string, bindVars map[string]any, cursorOptions *CursorOptions, options map[string]any) (*Cursor, error) {
	data := StatementData{
		Query:    query,
		BindVars: bindVars,
		Options:  options,
	}

	if cursorOptions != nil {
		data.Count = cursorOptions.Count
		data.BatchSize = cursorOptions.BatchSize
	}

	if cache, ok := options["cache"].(bool); ok {
		data.Cache = &cache
	}

	return s.Query(ctx, data)
}

func (st *Statement) Data() StatementData {
	return st.data
}

func (st *Statement) Bind(name string, value any) *Statement {
	if st.data.BindVars == nil {
		st.data.BindVars = map[string]any{}
	}
	st.data.BindVars[name] = value
	return st
}

func (st *Statement) SetCount(count bool) *Statement {
	st.data.Count = count
	return st
}

func (st *Statement) SetBatchSize(size int) *Statement {
	st.data.BatchSize = size
	return st
}

// Hash fingerprints the statement so executions of the same query can be correlated in logs.
func (st *Statement) Hash() (uint64, error) {
	return hashstructure.Hash(st.data, hashstructure.FormatV2, nil)
}

// Execute opens a cursor over the statement's results.
func (st *Statement) Execute(ctx context.Context) (*Cursor, error) {
	if st.data.Query == "" {
		return nil, fmt.Errorf("%w: a query is required", core.ErrUsage)
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		h, _ := st.Hash()
		logrus.WithField("query_hash", h).Debugf("executing query %q", st.data.Query)
	}

	// the cursor is bound to the database the query ran in, even if the session moves on
	database := st.s.CurrentDatabase()

	res, err := st.s.request(ctx, http.MethodPost, "/_api/cursor", st.data, nil)
	if err != nil {
		return nil, err
	}

	return newCursor(st.s, database, res)
}
