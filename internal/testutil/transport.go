// Package testutil holds test doubles shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a scripted session transport. Round trips are matched on method, path, body and
// header; the context is not part of the match.
type MockTransport struct {
	mock.Mock

	mu       sync.Mutex
	database string
	switches []string
}

func NewMockTransport(database string) *MockTransport {
	return &MockTransport{database: database}
}

func (m *MockTransport) Do(ctx context.Context, method string, path string, body any, header map[string]string) (any, error) {
	args := m.Called(method, path, body, header)
	return args.Get(0), args.Error(1)
}

func (m *MockTransport) DatabaseName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.database
}

func (m *MockTransport) SetDatabaseName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.database = name
	m.switches = append(m.switches, name)
}

// Switches returns every database name the transport was pointed at, in order.
func (m *MockTransport) Switches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.switches...)
}

// Expect scripts one round trip answered with result, whatever the body and header.
func (m *MockTransport) Expect(method string, path string, result any) *mock.Call {
	return m.On("Do", method, path, mock.Anything, mock.Anything).Return(result, nil).Once()
}

// ExpectFailure scripts one round trip failing below the protocol.
func (m *MockTransport) ExpectFailure(method string, path string, err error) *mock.Call {
	return m.On("Do", method, path, mock.Anything, mock.Anything).Return(nil, err).Once()
}

// Body returns the body of the i-th round trip.
func (m *MockTransport) Body(i int) any {
	return m.Calls[i].Arguments.Get(2)
}

// Header returns the header of the i-th round trip.
func (m *MockTransport) Header(i int) map[string]string {
	h, _ := m.Calls[i].Arguments.Get(3).(map[string]string)
	return h
}

// Paths returns the method and path of every round trip, in order.
func (m *MockTransport) Paths() []string {
	var result []string
	for _, c := range m.Calls {
		result = append(result, fmt.Sprintf("%s %s", c.Arguments.String(0), c.Arguments.String(1)))
	}
	return result
}

// ErrorEnvelope builds a failure envelope as the server sends it.
func ErrorEnvelope(code int, errorNum int, message string) map[string]any {
	return map[string]any{
		"error":        true,
		"code":         float64(code),
		"errorNum":     float64(errorNum),
		"errorMessage": message,
	}
}

// CursorEnvelope builds a cursor response. A negative count leaves the count out.
func CursorEnvelope(id string, items []any, hasMore bool, count int) map[string]any {
	res := map[string]any{
		"error":   false,
		"code":    float64(201),
		"result":  items,
		"hasMore": hasMore,
	}
	if id != "" {
		res["id"] = id
	}
	if count >= 0 {
		res["count"] = float64(count)
	}
	return res
}
