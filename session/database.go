package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shono-io/arangosh/core"
	"github.com/sirupsen/logrus"
)

// DatabaseProperties describes the database a session points at.
type DatabaseProperties struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsSystem bool   `json:"isSystem"`
}

// Endpoint is one server endpoint and the databases mapped to it.
type Endpoint struct {
	Endpoint  string   `json:"endpoint"`
	Databases []string `json:"databases"`
}

// DatabaseUser is a user created along with a database.
type DatabaseUser struct {
	Username string         `json:"username"`
	Password string         `json:"passwd,omitempty"`
	Active   *bool          `json:"active,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Properties returns the properties of the current database, querying them only when they are not
// cached yet or when force is set.
func (s *Session) Properties(ctx context.Context, force bool) (DatabaseProperties, error) {
	if !force {
		s.mu.RLock()
		p := s.properties
		s.mu.RUnlock()

		if p != nil {
			return *p, nil
		}
	}

	p, err := s.fetchProperties(ctx)
	if err != nil {
		return DatabaseProperties{}, err
	}

	s.mu.Lock()
	s.properties = p
	s.mu.Unlock()

	return *p, nil
}

func (s *Session) fetchProperties(ctx context.Context) (*DatabaseProperties, error) {
	res, err := s.request(ctx, http.MethodGet, "/_api/database/current", nil, nil)
	if err != nil {
		return nil, err
	}

	raw, ok := res["result"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("database properties missing from response")
	}

	var p DatabaseProperties
	if err := decode(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode database properties: %w", err)
	}

	return &p, nil
}

func (s *Session) ID(ctx context.Context) (string, error) {
	p, err := s.Properties(ctx, false)
	return p.ID, err
}

func (s *Session) Name(ctx context.Context) (string, error) {
	p, err := s.Properties(ctx, false)
	return p.Name, err
}

func (s *Session) Path(ctx context.Context) (string, error) {
	p, err := s.Properties(ctx, false)
	return p.Path, err
}

func (s *Session) IsSystem(ctx context.Context) (bool, error) {
	p, err := s.Properties(ctx, false)
	return p.IsSystem, err
}

// UseDatabase points the session at another database. The switch only sticks when the properties of
// the new database can be read; otherwise the previous database is restored and the caches are left
// as they were.
func (s *Session) UseDatabase(ctx context.Context, name string) error {
	if s.webInterface {
		return fmt.Errorf("%w: switching databases is not supported in the web interface", core.ErrNotImplemented)
	}

	old := s.transport.DatabaseName()
	if name == old {
		return nil
	}

	s.transport.SetDatabaseName(name)

	props, err := s.fetchProperties(ctx)
	if err != nil {
		s.transport.SetDatabaseName(old)

		if core.IsServerError(err) {
			return err
		}
		return fmt.Errorf("%w: cannot use database '%s': %w", core.ErrBadParameter, name, err)
	}

	collections, ok, err := s.fetchCollections(ctx)
	if err != nil || !ok {
		logrus.Debugf("unable to populate the collection cache of %q: %v", name, err)
		collections = nil
	}

	s.mu.Lock()
	s.replaceCollectionsLocked(collections)
	s.properties = props
	s.mu.Unlock()

	logrus.Debugf("switched from database %q to %q", old, name)
	return nil
}

// CreateDatabase creates a database. It does not switch to it.
func (s *Session) CreateDatabase(ctx context.Context, name string, options map[string]any, users []DatabaseUser) (bool, error) {
	if options == nil {
		options = map[string]any{}
	}
	if users == nil {
		users = []DatabaseUser{}
	}

	res, err := s.request(ctx, http.MethodPost, "/_api/database", map[string]any{
		"name":    name,
		"options": options,
		"users":   users,
	}, nil)
	if err != nil {
		return false, err
	}

	ok, _ := res["result"].(bool)
	return ok, nil
}

func (s *Session) DropDatabase(ctx context.Context, name string) (bool, error) {
	res, err := s.request(ctx, http.MethodDelete, "/_api/database/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return false, err
	}

	ok, _ := res["result"].(bool)
	return ok, nil
}

func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	res, err := s.request(ctx, http.MethodGet, "/_api/database", nil, nil)
	if err != nil {
		return nil, err
	}

	var result []string
	if err := decode(res["result"], &result); err != nil {
		return nil, fmt.Errorf("failed to decode databases: %w", err)
	}

	return result, nil
}

func (s *Session) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	res, err := s.requestRaw(ctx, http.MethodGet, "/_api/endpoint", nil, nil)
	if err != nil {
		return nil, err
	}

	var result []Endpoint
	if err := decode(res, &result); err != nil {
		return nil, fmt.Errorf("failed to decode endpoints: %w", err)
	}

	return result, nil
}

// Version returns the server version.
func (s *Session) Version(ctx context.Context) (string, error) {
	res, err := s.request(ctx, http.MethodGet, "/_api/version", nil, nil)
	if err != nil {
		return "", err
	}

	v, _ := res["version"].(string)
	return v, nil
}
