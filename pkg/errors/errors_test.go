package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[ETL1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[ETL1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("host", "example.com").
				WithContext("port", 443),
			expected: "[ETL1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != ErrCodeConnectionFailed {
				t.Errorf("Expected code %s, got %s", ErrCodeConnectionFailed, tt.err.Code)
			}
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("database is locked")

	appErr := Wrap(baseErr, ErrCodeUpsertFailed, "Failed to upsert dim_users")

	if appErr.Cause != baseErr {
		t.Error("Wrapped error should contain original error as cause")
	}
	if !errors.Is(appErr, baseErr) {
		t.Error("errors.Is should reach the cause")
	}
	if Wrap(nil, ErrCodeInternal, "nothing") != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeSourceMalformed, "bad header").WithContext("path", "transactions.csv")
	outer := Wrap(inner, ErrCodeInternal, "ingest failed")

	if outer.Context["path"] != "transactions.csv" {
		t.Errorf("Expected inherited context, got %v", outer.Context)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("ingest: %w", SchemaError("transactions", 2, fmt.Errorf("amount < 0")))

	if !HasCode(err, ErrCodeSchemaViolation) {
		t.Error("Expected schema violation code in chain")
	}
	if HasCode(err, ErrCodeUpsertFailed) {
		t.Error("Did not expect upsert code in chain")
	}
	if GetErrorCode(err) != ErrCodeSchemaViolation {
		t.Errorf("Expected %s, got %s", ErrCodeSchemaViolation, GetErrorCode(err))
	}
	if GetErrorCode(fmt.Errorf("plain")) != ErrCodeInternal {
		t.Error("Plain errors should map to the internal code")
	}
}

func TestConstructors(t *testing.T) {
	schemaErr := SchemaError("transactions", 3, fmt.Errorf("amount must be >= 0"))
	if schemaErr.Severity != SeverityCritical {
		t.Errorf("Schema violations should be critical, got %s", schemaErr.Severity)
	}
	if !strings.Contains(schemaErr.Error(), "row 3") {
		t.Errorf("Expected row number in message: %s", schemaErr.Error())
	}

	storageErr := StorageError(ErrCodeUpsertFailed, "fact_transactions", fmt.Errorf("disk I/O error"))
	if storageErr.Context["table"] != "fact_transactions" {
		t.Errorf("Expected table context, got %v", storageErr.Context)
	}

	cfgErr := ConfigError("unknown upsert strategy", "warehouse.upsert_strategy")
	if cfgErr.Code != ErrCodeConfigInvalid {
		t.Errorf("Expected %s, got %s", ErrCodeConfigInvalid, cfgErr.Code)
	}
}

func TestTransactionHandler(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		committed, rolledBack := false, false
		th := NewTransactionHandler(
			func() error { committed = true; return nil },
			func() error { rolledBack = true; return nil },
		)

		if err := th.Execute(func() error { return nil }); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !committed || rolledBack {
			t.Errorf("Expected commit only, got committed=%v rolledBack=%v", committed, rolledBack)
		}
		if err := th.Execute(func() error { return nil }); err == nil {
			t.Error("A committed handler must not run again")
		}
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		committed, rolledBack := false, false
		th := NewTransactionHandler(
			func() error { committed = true; return nil },
			func() error { rolledBack = true; return nil },
		)

		testErr := fmt.Errorf("insert failed")
		err := th.Execute(func() error { return testErr })
		if !errors.Is(err, testErr) {
			t.Errorf("Expected %v, got %v", testErr, err)
		}
		if committed || !rolledBack {
			t.Errorf("Expected rollback only, got committed=%v rolledBack=%v", committed, rolledBack)
		}
	})

	t.Run("rolls back when commit fails", func(t *testing.T) {
		rolledBack := false
		th := NewTransactionHandler(
			func() error { return fmt.Errorf("commit refused") },
			func() error { rolledBack = true; return fmt.Errorf("rollback refused") },
		)

		err := th.Execute(func() error { return nil })
		if !HasCode(err, ErrCodeSQLTransaction) {
			t.Errorf("Expected transaction error code, got %v", err)
		}
		if !rolledBack {
			t.Error("Expected rollback after failed commit")
		}
		if !strings.Contains(err.Error(), "rollback refused") {
			t.Errorf("Expected rollback failure in error: %v", err)
		}
	})
}

func BenchmarkErrorCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = New(ErrCodeConnectionFailed, "Test error").
			WithContext("iteration", i).
			WithSuggestions("Suggestion 1", "Suggestion 2")
	}
}
