// Package changed routes messages by comparing them with the document stored under their key.
package changed

import (
	"context"
	"fmt"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/shono-io/arangosh/components/arangodb"
	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/session"
	"go.uber.org/multierr"
)

func init() {
	if err := service.RegisterProcessor("arangodb_changed", config(), newProc); err != nil {
		panic(err)
	}
}

func config() *service.ConfigSpec {
	return service.NewConfigSpec().
		Beta().
		Categories("Integration").
		Summary("Compares the message with the document stored under its key and runs the processors matching the outcome.").
		Field(service.NewObjectField("arangodb", arangodb.ConfigFields()...)).
		Field(service.NewStringField("collection")).
		Field(service.NewInterpolatedStringField("key")).
		Field(service.NewProcessorListField("when_new").Default([]any{})).
		Field(service.NewProcessorListField("when_changed").Default([]any{})).
		Field(service.NewProcessorListField("when_unchanged").Default([]any{}))
}

func newProc(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
	s, err := arangodb.NewSessionFromConfig(conf.Namespace("arangodb"))
	if err != nil {
		return nil, fmt.Errorf("failed to create arangodb session: %w", err)
	}

	return procFromConfig(conf, s)
}

func procFromConfig(conf *service.ParsedConfig, s *session.Session) (*proc, error) {
	collection, err := conf.FieldString("collection")
	if err != nil {
		return nil, err
	}

	key, err := conf.FieldInterpolatedString("key")
	if err != nil {
		return nil, err
	}

	whenNew, err := conf.FieldProcessorList("when_new")
	if err != nil {
		return nil, err
	}

	whenChanged, err := conf.FieldProcessorList("when_changed")
	if err != nil {
		return nil, err
	}

	whenUnchanged, err := conf.FieldProcessorList("when_unchanged")
	if err != nil {
		return nil, err
	}

	return &proc{
		s:             s,
		collection:    collection,
		key:           key,
		whenNew:       whenNew,
		whenChanged:   whenChanged,
		whenUnchanged: whenUnchanged,
	}, nil
}

type proc struct {
	s             *session.Session
	collection    string
	key           *service.InterpolatedString
	whenNew       []*service.OwnedProcessor
	whenChanged   []*service.OwnedProcessor
	whenUnchanged []*service.OwnedProcessor
}

func (p *proc) Process(ctx context.Context, message *service.Message) (service.MessageBatch, error) {
	if message == nil {
		return nil, nil
	}

	payload, err := message.AsStructured()
	if err != nil {
		return nil, fmt.Errorf("unable to read message payload: %w", err)
	}

	doc, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unsupported message payload type: %T", payload)
	}

	messageHash, err := core.Fingerprint(core.Content(doc))
	if err != nil {
		return nil, err
	}

	key, err := p.key.TryString(message)
	if err != nil {
		return nil, fmt.Errorf("unable to extract key: %w", err)
	}

	stored, err := p.storedDocument(ctx, key)
	if err != nil {
		return nil, err
	}

	fnd := stored != nil
	var storedHash string
	var changes []map[string]any
	if fnd {
		if storedHash, err = core.Fingerprint(core.Content(stored)); err != nil {
			return nil, err
		}
		if changes, err = core.Changelog(core.Content(stored), core.Content(doc)); err != nil {
			return nil, err
		}
	}

	changed := fnd && storedHash != messageHash

	if err := p.processOutcome(ctx, fnd, changed, message); err != nil {
		return nil, fmt.Errorf("unable to process outcomes: %w", err)
	}

	result := service.NewMessage(nil)
	result.SetStructuredMut(map[string]any{
		"changed":   changed,
		"found":     fnd,
		"changelog": changes,
		"hashes": map[string]any{
			"message":  messageHash,
			"document": storedHash,
		},
	})

	return service.MessageBatch{result}, nil
}

func (p *proc) storedDocument(ctx context.Context, key string) (map[string]any, error) {
	doc, err := p.s.Document(ctx, session.Ref(core.NewHandle(p.collection, key).String()))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read stored document: %w", err)
	}

	return doc, nil
}

func (p *proc) processOutcome(ctx context.Context, found, changed bool, original *service.Message) error {
	var procs []*service.OwnedProcessor
	if !found {
		procs = p.whenNew
	} else if changed {
		procs = p.whenChanged
	} else {
		procs = p.whenUnchanged
	}

	if len(procs) == 0 {
		return nil
	}

	res, err := service.ExecuteProcessors(ctx, procs, service.MessageBatch{original})
	if err != nil {
		return fmt.Errorf("unable to execute processors: %w", err)
	}

	var errs error
	for _, m := range res {
		for _, v := range m {
			if v != nil {
				if err := v.GetError(); err != nil {
					errs = multierr.Append(errs, err)
				}
			}
		}
	}

	return errs
}

func (p *proc) Close(ctx context.Context) error {
	var errs error
	for _, procs := range [][]*service.OwnedProcessor{p.whenNew, p.whenChanged, p.whenUnchanged} {
		for _, op := range procs {
			errs = multierr.Append(errs, op.Close(ctx))
		}
	}
	return errs
}
