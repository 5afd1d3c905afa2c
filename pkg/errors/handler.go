package errors

import (
	"errors"
	"fmt"
)

// TransactionHandler runs work inside a transaction scope and rolls back on failure
type TransactionHandler struct {
	commitFunc   func() error
	rollbackFunc func() error
	committed    bool
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(commitFunc, rollbackFunc func() error) *TransactionHandler {
	return &TransactionHandler{
		commitFunc:   commitFunc,
		rollbackFunc: rollbackFunc,
	}
}

// Execute runs fn and commits. Any error from fn or the commit triggers a rollback;
// the rollback error, if any, is joined to the returned error.
func (th *TransactionHandler) Execute(fn func() error) error {
	if th.committed {
		return New(ErrCodeSQLTransaction, "Transaction already committed")
	}

	err := fn()
	if err == nil && th.commitFunc != nil {
		if cerr := th.commitFunc(); cerr != nil {
			err = Wrap(cerr, ErrCodeSQLTransaction, "Failed to commit transaction")
		}
	}

	if err != nil {
		if th.rollbackFunc != nil {
			if rerr := th.rollbackFunc(); rerr != nil {
				return errors.Join(err, fmt.Errorf("rollback: %w", rerr))
			}
		}
		return err
	}

	th.committed = true
	return nil
}
