// Package query streams the results of an AQL query into a pipeline.
package query

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/benthosdev/benthos/v4/public/bloblang"
	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/dustin/go-humanize"
	"github.com/shono-io/arangosh/components/arangodb"
	"github.com/shono-io/arangosh/session"
)

const metaCount = "arangodb_cursor_count"

func init() {
	err := service.RegisterInput("arangodb_query", inputConfig(), func(conf *service.ParsedConfig, mgr *service.Resources) (service.Input, error) {
		s, err := arangodb.NewSessionFromConfig(conf.Namespace("arangodb"))
		if err != nil {
			return nil, fmt.Errorf("failed to create arangodb session: %w", err)
		}

		in, err := newQueryInput(conf, s, mgr.Logger())
		if err != nil {
			return nil, err
		}

		return service.AutoRetryNacks(in), nil
	})
	if err != nil {
		panic(err)
	}
}

func inputConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Beta().
		Categories("Integration").
		Summary("Runs an AQL query once and emits a message per result.").
		Field(service.NewObjectField("arangodb", arangodb.ConfigFields()...)).
		Field(service.NewStringField("query").
			Description("The AQL query to run").
			Example("FOR u IN users FILTER u.active == @active RETURN u")).
		Field(service.NewBloblangField("bind_vars_mapping").
			Description("A mapping producing the object of bind variables of the query").
			Example(`root = { "active": true }`).
			Optional()).
		Field(service.NewIntField("batch_size").
			Description("The number of results fetched per round trip").
			Default(100)).
		Field(service.NewBoolField("count").
			Description("Whether the server should count the results. The count is added as metadata to every message").
			Default(true))
}

type queryInput struct {
	s      *session.Session
	logger *service.Logger

	query     string
	bindVars  *bloblang.Executor
	batchSize int
	count     bool

	mu     sync.Mutex
	cursor *session.Cursor
}

func newQueryInput(conf *service.ParsedConfig, s *session.Session, logger *service.Logger) (in *queryInput, err error) {
	in = &queryInput{s: s, logger: logger}

	if in.query, err = conf.FieldString("query"); err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	if conf.Contains("bind_vars_mapping") {
		if in.bindVars, err = conf.FieldBloblang("bind_vars_mapping"); err != nil {
			return nil, fmt.Errorf("failed to get bind vars mapping: %w", err)
		}
	}

	if in.batchSize, err = conf.FieldInt("batch_size"); err != nil {
		return nil, fmt.Errorf("failed to get batch size: %w", err)
	}

	if in.count, err = conf.FieldBool("count"); err != nil {
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	return in, nil
}

func (in *queryInput) Connect(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.cursor != nil {
		return nil
	}

	bindVars, err := in.resolveBindVars()
	if err != nil {
		return err
	}

	cur, err := in.s.QueryAQL(ctx, in.query, bindVars, &session.CursorOptions{
		Count:     in.count,
		BatchSize: in.batchSize,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	in.cursor = cur
	in.logger.Debugf("opened %s", cur)

	return nil
}

func (in *queryInput) resolveBindVars() (map[string]any, error) {
	if in.bindVars == nil {
		return nil, nil
	}

	v, err := in.bindVars.Query(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind vars: %w", err)
	}

	bindVars, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bind vars mapping must produce an object, got %T", v)
	}

	return bindVars, nil
}

func (in *queryInput) Read(ctx context.Context) (*service.Message, service.AckFunc, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.cursor == nil {
		return nil, nil, service.ErrNotConnected
	}

	if !in.cursor.HasNext() {
		return nil, nil, service.ErrEndOfInput
	}

	item, err := in.cursor.Next(ctx)
	if err != nil {
		return nil, nil, err
	}

	msg := service.NewMessage(nil)
	msg.SetStructuredMut(item)

	if n, ok := in.cursor.Count(); ok {
		msg.MetaSetMut(metaCount, strconv.FormatInt(n, 10))
	}

	return msg, func(ctx context.Context, err error) error {
		return nil
	}, nil
}

func (in *queryInput) Close(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.cursor == nil {
		return nil
	}

	err := in.cursor.Dispose(ctx)

	in.logger.Debugf("read %s results in %s batches", humanize.Comma(in.cursor.Read()), humanize.Comma(int64(in.cursor.Batches())))
	in.cursor = nil

	return err
}
