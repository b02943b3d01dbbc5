package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/dustin/go-humanize"
	"github.com/shono-io/arangosh/components/arangodb"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	metaFound     = "arangodb_found"
	metaExists    = "arangodb_exists"
	metaChanged   = "arangodb_changed"
	metaChangelog = "arangodb_changelog"
	metaDeleted   = "arangodb_deleted"
	metaCount     = "arangodb_cursor_count"
)

func init() {
	err := service.RegisterProcessor("arangodb_storage", storeProcConfig(), func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
		return procFromConfig(conf, mgr)
	})
	if err != nil {
		panic(err)
	}
}

func storeProcConfig() *service.ConfigSpec {
	spec := service.NewConfigSpec().
		Beta().
		Categories("Integration").
		Summary("Reads and writes documents of an arangodb collection.")

	return spec.
		Field(service.NewObjectField("arangodb", arangodb.ConfigFields()...)).
		Field(service.NewInterpolatedStringField("collection").
			Description("The collection to manipulate")).
		Field(service.NewStringEnumField("operation", "list", "get", "exists", "add", "set", "merge", "delete").
			Description("The operation to perform")).
		Field(service.NewInterpolatedStringField("key").
			Description("The document key to use. This is only applicable for 'get', 'exists', 'add', 'set', 'merge' and 'delete'").
			Optional()).
		Field(service.NewInterpolatedStringField("q").
			Description("An AQL filter expression on the document `d`. This is only applicable for 'list'").
			Optional()).
		Field(service.NewIntField("batch_size").
			Description("The number of documents fetched per round trip when listing").
			Default(100))
}

func procFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*storeProc, error) {
	s, err := arangodb.NewSessionFromConfig(conf.Namespace("arangodb"))
	if err != nil {
		return nil, fmt.Errorf("failed to create arangodb session: %w", err)
	}

	return newStoreProc(conf, NewSessionClient(s), mgr.Logger())
}

func newStoreProc(conf *service.ParsedConfig, client Client, logger *service.Logger) (proc *storeProc, err error) {
	proc = &storeProc{driver: client, logger: logger}

	proc.collection, err = conf.FieldInterpolatedString("collection")
	if err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	proc.operation, err = conf.FieldString("operation")
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	if conf.Contains("key") {
		proc.key, err = conf.FieldInterpolatedString("key")
		if err != nil {
			return nil, fmt.Errorf("failed to get key: %w", err)
		}
	} else if proc.operation != "list" {
		return nil, fmt.Errorf("operation %q requires a key", proc.operation)
	}

	if conf.Contains("q") {
		proc.q, err = conf.FieldInterpolatedString("q")
		if err != nil {
			return nil, fmt.Errorf("failed to get query: %w", err)
		}
	}

	proc.batchSize, err = conf.FieldInt("batch_size")
	if err != nil {
		return nil, fmt.Errorf("failed to get batch size: %w", err)
	}

	return proc, nil
}

type storeProc struct {
	driver     Client
	logger     *service.Logger
	collection *service.InterpolatedString

	operation string
	key       *service.InterpolatedString
	q         *service.InterpolatedString
	batchSize int
}

func (s *storeProc) Process(ctx context.Context, message *service.Message) (service.MessageBatch, error) {
	switch s.operation {
	case "get":
		return s.processGet(ctx, message)
	case "exists":
		return s.processExists(ctx, message)
	case "add":
		return s.processWrite(ctx, message, "adding", s.driver.Add)
	case "set":
		return s.processWrite(ctx, message, "setting", s.driver.Set)
	case "merge":
		return s.processWrite(ctx, message, "merging", s.driver.Merge)
	case "delete":
		return s.processDelete(ctx, message)
	case "list":
		return s.processList(ctx, message)
	default:
		return nil, fmt.Errorf("unknown operation: %s", s.operation)
	}
}

func (s *storeProc) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *storeProc) target(message *service.Message) (string, string, error) {
	col, err := s.collection.TryString(message)
	if err != nil {
		return "", "", fmt.Errorf("invalid collection: %w", err)
	}

	key, err := s.key.TryString(message)
	if err != nil {
		return "", "", fmt.Errorf("failed to get key: %w", err)
	}

	return col, key, nil
}

func (s *storeProc) processGet(ctx context.Context, message *service.Message) (service.MessageBatch, error) {
	col, key, err := s.target(message)
	if err != nil {
		return nil, err
	}

	res, err := s.driver.Get(ctx, col, key)
	if err != nil {
		return nil, fmt.Errorf("unable to read document with key %q: %w", key, err)
	}

	if res == nil {
		result := message.Copy()
		result.MetaSetMut(metaFound, "false")
		return service.MessageBatch{result}, nil
	}

	result := service.NewMessage(nil)
	result.SetStructuredMut(res)

	CopyMeta(message, result)
	result.MetaSetMut(metaFound, "true")

	return service.MessageBatch{result}, nil
}

func (s *storeProc) processExists(ctx context.Context, message *service.Message) (service.MessageBatch, error) {
	col, key, err := s.target(message)
	if err != nil {
		return nil, err
	}

	fnd, err := s.driver.Exists(ctx, col, key)
	if err != nil {
		return nil, fmt.Errorf("unable to check document with key %q: %w", key, err)
	}

	result := message.Copy()
	result.MetaSetMut(metaExists, strconv.FormatBool(fnd))

	return service.MessageBatch{result}, nil
}

type writeFn func(ctx context.Context, collection string, key string, value map[string]any) (*Write, error)

func (s *storeProc) processWrite(ctx context.Context, message *service.Message, verb string, write writeFn) (service.MessageBatch, error) {
	col, key, err := s.target(message)
	if err != nil {
		return nil, err
	}

	data, err := s.getMessagePayload(message)
	if err != nil {
		return nil, err
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		b, _ := json.Marshal(data)
		logrus.Tracef("%s document %q in %q to %s", verb, key, col, b)
	}

	w, err := write(ctx, col, key, data)
	if err != nil {
		return nil, fmt.Errorf("%s document with key %s failed: %w", verb, key, err)
	}

	result := service.NewMessage(nil)
	result.SetStructuredMut(w.Document)

	CopyMeta(message, result)
	result.MetaSetMut(metaChanged, strconv.FormatBool(w.Changed))

	if len(w.Changelog) > 0 {
		b, err := json.Marshal(w.Changelog)
		if err != nil {
			return nil, fmt.Errorf("failed to encode changelog: %w", err)
		}
		result.MetaSetMut(metaChangelog, string(b))
	}

	return service.MessageBatch{result}, nil
}

func (s *storeProc) processDelete(ctx context.Context, message *service.Message) (service.MessageBatch, error) {
	col, key, err := s.target(message)
	if err != nil {
		return nil, err
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("removing document %q from %q", key, col)
	}

	// -- get the document so we can return it
	data, err := s.driver.Get(ctx, col, key)
	if err != nil {
		return nil, fmt.Errorf("unable to read document with key %q: %w", key, err)
	}

	deleted, err := s.driver.Delete(ctx, col, key)
	if err != nil {
		return nil, fmt.Errorf("unable to delete document with key %s: %w", key, err)
	}

	result := service.NewMessage(nil)
	result.SetStructuredMut(data)

	CopyMeta(message, result)
	result.MetaSetMut(metaDeleted, strconv.FormatBool(deleted))

	return service.MessageBatch{result}, nil
}

func (s *storeProc) processList(ctx context.Context, message *service.Message) (batch service.MessageBatch, err error) {
	var q string
	if s.q != nil {
		if q, err = s.q.TryString(message); err != nil {
			return nil, fmt.Errorf("failed to parse query: %w", err)
		}
	}

	col, err := s.collection.TryString(message)
	if err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	cur, err := s.driver.List(ctx, col, q, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() {
		err = multierr.Append(err, cur.Close(ctx))
		if err != nil {
			batch = nil
		}
	}()

	count, counted := cur.Count()

	var res service.MessageBatch
	for cur.HasNext() {
		doc, err := cur.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}

		result := service.NewMessage(nil)
		result.SetStructuredMut(doc)

		CopyMeta(message, result)
		if counted {
			result.MetaSetMut(metaCount, strconv.FormatInt(count, 10))
		}

		res = append(res, result)
	}

	s.logger.Debugf("listed %s documents from %q", humanize.Comma(int64(len(res))), col)

	return res, nil
}

func (s *storeProc) getMessagePayload(message *service.Message) (map[string]any, error) {
	sd, err := message.AsStructuredMut()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve the value: %w", err)
	}

	data, ok := sd.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unsupported message payload type: %T", sd)
	}

	return data, nil
}

func CopyMeta(src, dst *service.Message) {
	_ = src.MetaWalk(func(k string, v string) error {
		dst.MetaSetMut(k, v)
		return nil
	})
}
