package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shono-io/arangosh/core"
)

// TransactionCollections declares the collections a transaction locks.
type TransactionCollections struct {
	Read          []string `json:"read,omitempty"`
	Write         []string `json:"write,omitempty"`
	Exclusive     []string `json:"exclusive,omitempty"`
	AllowImplicit *bool    `json:"allowImplicit,omitempty"`
}

// Transaction is a server side JavaScript transaction. Action holds the source of the function the
// server runs.
type Transaction struct {
	Collections *TransactionCollections `json:"collections"`
	Action      string                  `json:"action"`
	Params      any                     `json:"params,omitempty"`
	LockTimeout *float64                `json:"lockTimeout,omitempty"`
	WaitForSync bool                    `json:"waitForSync,omitempty"`
}

// ExecuteTransaction runs a transaction and returns its result.
func (s *Session) ExecuteTransaction(ctx context.Context, tx *Transaction) (any, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: ExecuteTransaction(<transaction>)", core.ErrUsage)
	}

	if tx.Collections == nil {
		return nil, fmt.Errorf("%w: missing/invalid collections definition for transaction", core.ErrUsage)
	}

	if strings.TrimSpace(tx.Action) == "" {
		return nil, fmt.Errorf("%w: missing/invalid action definition for transaction", core.ErrUsage)
	}

	res, err := s.request(ctx, http.MethodPost, "/_api/transaction", tx, nil)
	if err != nil {
		return nil, err
	}

	return res["result"], nil
}
