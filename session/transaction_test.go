package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/shono-io/arangosh/core"
	"github.com/shono-io/arangosh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction(t *testing.T) {
	t.Run("should validate the transaction", validateTransaction)
	t.Run("should return the transaction result", returnTransactionResult)
}

func validateTransaction(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	s := New(tr)

	_, err := s.ExecuteTransaction(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrUsage)

	_, err = s.ExecuteTransaction(context.Background(), &Transaction{Action: "function () { return 1; }"})
	assert.ErrorIs(t, err, core.ErrUsage)

	_, err = s.ExecuteTransaction(context.Background(), &Transaction{Collections: &TransactionCollections{}, Action: "  "})
	assert.ErrorIs(t, err, core.ErrUsage)

	assert.Empty(t, tr.Calls)
}

func returnTransactionResult(t *testing.T) {
	tr := testutil.NewMockTransport("_system")
	tr.Expect(http.MethodPost, "/_api/transaction", map[string]any{"error": false, "code": float64(200), "result": float64(7)})

	tx := &Transaction{
		Collections: &TransactionCollections{Write: []string{"users"}},
		Action:      "function (params) { return params.n + 1; }",
		Params:      map[string]any{"n": 6},
	}

	res, err := New(tr).ExecuteTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, float64(7), res)
	assert.Same(t, tx, tr.Body(0))
}
