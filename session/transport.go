package session

import "context"

// Transport executes a single request against the server. Implementations own the connection, its
// timeouts and its retries; the session only ever issues one request at a time per caller.
//
// Do returns the decoded response body: a map[string]any envelope for most endpoints or a raw
// payload such as []any. A failure envelope is a map carrying "error": true and is returned as a
// regular result, not as an error. Errors are reserved for failures below the protocol (network,
// serialization) and are handed back to the caller unchanged.
type Transport interface {
	Do(ctx context.Context, method string, path string, body any, header map[string]string) (any, error)

	// DatabaseName returns the database requests are routed to.
	DatabaseName() string

	// SetDatabaseName switches the database requests are routed to.
	SetDatabaseName(name string)
}
