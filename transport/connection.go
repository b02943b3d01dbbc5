// Package transport carries session requests over a go-driver connection.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	driver "github.com/arangodb/go-driver"
	arangohttp "github.com/arangodb/go-driver/http"
	"github.com/sirupsen/logrus"
)

// Config describes how to reach the server.
type Config struct {
	Endpoints []string
	Username  string
	Password  string
	Database  string
}

// Connection implements the session transport on top of a go-driver connection. Paths are resolved
// against the current database unless they already name one.
type Connection struct {
	conn driver.Connection

	mu       sync.RWMutex
	database string
}

// New wraps an existing go-driver connection.
func New(conn driver.Connection, database string) *Connection {
	if database == "" {
		database = "_system"
	}

	return &Connection{conn: conn, database: database}
}

// Dial opens an http connection to the given endpoints, authenticating when a username is set.
func Dial(cfg Config) (*Connection, error) {
	conn, err := arangohttp.NewConnection(arangohttp.ConnectionConfig{
		Endpoints: cfg.Endpoints,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create arangodb connection: %w", err)
	}

	clientConfig := driver.ClientConfig{Connection: conn}
	if cfg.Username != "" {
		clientConfig.Authentication = driver.BasicAuthentication(cfg.Username, cfg.Password)
	}

	c, err := driver.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create arangodb client: %w", err)
	}

	return New(c.Connection(), cfg.Database), nil
}

func (c *Connection) DatabaseName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.database
}

func (c *Connection) SetDatabaseName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.database = name
}

// Do performs one round trip and returns the decoded response. Failures below the protocol are
// returned as they come from the connection.
func (c *Connection) Do(ctx context.Context, method string, path string, body any, header map[string]string) (any, error) {
	p, query, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := c.conn.NewRequest(method, p)
	if err != nil {
		return nil, err
	}

	for k, vs := range query {
		for _, v := range vs {
			req.SetQuery(k, v)
		}
	}

	for k, v := range header {
		req.SetHeader(k, v)
	}

	if body != nil {
		if req, err = req.SetBody(body); err != nil {
			return nil, fmt.Errorf("failed to set request body: %w", err)
		}
	}

	resp, err := c.conn.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("%s %s returned %d", method, p, resp.StatusCode())
	}

	return decodeResponse(method, resp), nil
}

// resolve prefixes the current database and splits off the query string.
func (c *Connection) resolve(path string) (string, url.Values, error) {
	p, rawQuery, _ := strings.Cut(path, "?")

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("invalid query in %q: %w", path, err)
	}

	if !strings.HasPrefix(p, "/_db/") {
		p = "/_db/" + url.PathEscape(c.DatabaseName()) + p
	}

	return strings.TrimPrefix(p, "/"), query, nil
}

// decodeResponse parses the body. Responses without a parseable body get an envelope built from
// the status code, so HEAD requests and bare error pages are reported like any other response.
func decodeResponse(method string, resp driver.Response) any {
	code := resp.StatusCode()

	var result any
	if method != http.MethodHead {
		if err := resp.ParseBody("", &result); err == nil && result != nil {
			return result
		}
	}

	if code >= http.StatusBadRequest {
		return map[string]any{
			"error":        true,
			"code":         float64(code),
			"errorNum":     float64(code),
			"errorMessage": http.StatusText(code),
		}
	}

	if method == http.MethodHead {
		return map[string]any{
			"error": false,
			"code":  float64(code),
		}
	}

	return nil
}
