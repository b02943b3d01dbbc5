package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	driver "github.com/arangodb/go-driver"
	"github.com/mitchellh/mapstructure"
	"github.com/shono-io/arangosh/core"
	"github.com/sirupsen/logrus"
)

// Option configures a Session.
type Option func(s *Session)

// WithWebInterface marks the session as hosted by the web interface, where switching databases is
// not supported.
func WithWebInterface() Option {
	return func(s *Session) {
		s.webInterface = true
	}
}

// Session is the entry point for collection, document, index, query, transaction and database
// operations on one transport. Its collection and properties caches always describe the database
// the transport currently points at.
type Session struct {
	transport    Transport
	webInterface bool

	mu          sync.RWMutex
	collections map[string]*Collection
	properties  *DatabaseProperties
}

func New(transport Transport, opts ...Option) *Session {
	s := &Session{
		transport:   transport,
		collections: map[string]*Collection{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CurrentDatabase returns the name of the database the session points at.
func (s *Session) CurrentDatabase() string {
	return s.transport.DatabaseName()
}

func (s *Session) String() string {
	return fmt.Sprintf("[session %q]", s.CurrentDatabase())
}

// request performs a round trip and expects an envelope back.
func (s *Session) request(ctx context.Context, method string, path string, body any, header map[string]string) (map[string]any, error) {
	res, err := s.requestRaw(ctx, method, path, body, header)
	if err != nil {
		return nil, err
	}

	switch env := res.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return env, nil
	default:
		return nil, fmt.Errorf("unexpected %T payload for %s %s", res, method, path)
	}
}

// requestRaw performs a round trip, turning failure envelopes into errors.
func (s *Session) requestRaw(ctx context.Context, method string, path string, body any, header map[string]string) (any, error) {
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		b, _ := json.Marshal(body)
		logrus.Tracef("%s %s %s", method, path, b)
	}

	res, err := s.transport.Do(ctx, method, path, body, header)
	if err != nil {
		return nil, err
	}

	if err := checkResult(res); err != nil {
		logrus.Debugf("%s %s failed: %v", method, path, err)
		return nil, err
	}

	return res, nil
}

// checkResult returns the server error carried by a failure envelope.
func checkResult(res any) error {
	env, ok := res.(map[string]any)
	if !ok {
		return nil
	}

	if isErr, _ := env["error"].(bool); !isErr {
		return nil
	}

	var ae driver.ArangoError
	if err := decode(env, &ae); err != nil {
		return fmt.Errorf("failed to decode error envelope: %w", err)
	}
	ae.HasError = true
	if ae.ErrorMessage == "" {
		ae.ErrorMessage = http.StatusText(ae.Code)
	}

	return ae
}

func decode(input any, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	return dec.Decode(input)
}

// single returns the only options value passed, its zero value when none was passed, or a usage
// error when several were.
func single[T any](opts []T) (T, error) {
	var zero T
	switch len(opts) {
	case 0:
		return zero, nil
	case 1:
		return opts[0], nil
	default:
		return zero, fmt.Errorf("%w: too many arguments", core.ErrUsage)
	}
}
