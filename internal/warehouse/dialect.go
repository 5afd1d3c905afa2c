package warehouse

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names
const (
	DialectSQLite    = "sqlite"
	DialectPostgres  = "postgres"
	DialectMySQL     = "mysql"
	DialectSnowflake = "snowflake"
)

type columnKind int

const (
	kindID columnKind = iota
	kindText
	kindDate
	kindTimestamp
	kindAmount
	kindBool
)

// Dialect captures the SQL differences between supported warehouses.
type Dialect struct {
	Name       string
	DriverName string
	// MaxParams bounds the bind parameters of one statement.
	MaxParams int
	// NativeUpsert reports whether a single-statement upsert is available.
	NativeUpsert bool

	types       map[columnKind]string
	dateFormat  string
	positional  bool
	upsertStyle upsertStyle
}

type upsertStyle int

const (
	upsertNone upsertStyle = iota
	upsertOnConflict
	upsertOnDuplicateKey
)

var dialects = map[string]*Dialect{
	DialectSQLite: {
		Name:         DialectSQLite,
		DriverName:   "sqlite",
		MaxParams:    999,
		NativeUpsert: true,
		types: map[columnKind]string{
			kindID: "TEXT", kindText: "TEXT", kindDate: "TEXT",
			kindTimestamp: "TEXT", kindAmount: "REAL", kindBool: "INTEGER",
		},
		dateFormat:  "date(%s)",
		upsertStyle: upsertOnConflict,
	},
	DialectPostgres: {
		Name:         DialectPostgres,
		DriverName:   "pgx",
		MaxParams:    65535,
		NativeUpsert: true,
		types: map[columnKind]string{
			kindID: "TEXT", kindText: "TEXT", kindDate: "TEXT",
			kindTimestamp: "TEXT", kindAmount: "NUMERIC(12,2)", kindBool: "BOOLEAN",
		},
		dateFormat:  "CAST(%s AS DATE)",
		positional:  true,
		upsertStyle: upsertOnConflict,
	},
	DialectMySQL: {
		Name:         DialectMySQL,
		DriverName:   "mysql",
		MaxParams:    65535,
		NativeUpsert: true,
		types: map[columnKind]string{
			kindID: "VARCHAR(32)", kindText: "VARCHAR(255)", kindDate: "VARCHAR(10)",
			kindTimestamp: "VARCHAR(19)", kindAmount: "DECIMAL(12,2)", kindBool: "BOOLEAN",
		},
		dateFormat:  "DATE(%s)",
		upsertStyle: upsertOnDuplicateKey,
	},
	DialectSnowflake: {
		Name:       DialectSnowflake,
		DriverName: "snowflake",
		MaxParams:  16384,
		types: map[columnKind]string{
			kindID: "VARCHAR", kindText: "VARCHAR", kindDate: "VARCHAR",
			kindTimestamp: "VARCHAR", kindAmount: "NUMBER(12,2)", kindBool: "BOOLEAN",
		},
		dateFormat: "TO_DATE(%s, 'YYYY-MM-DD HH24:MI:SS')",
	},
}

// LookupDialect returns the dialect registered under name
func LookupDialect(name string) (*Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

func (d *Dialect) columnType(kind columnKind) string {
	return d.types[kind]
}

func (d *Dialect) dateOf(expr string) string {
	return fmt.Sprintf(d.dateFormat, expr)
}

// placeholders renders n bind markers starting after offset.
func (d *Dialect) placeholders(offset, n int) string {
	marks := make([]string, n)
	for i := range marks {
		if d.positional {
			marks[i] = "$" + strconv.Itoa(offset+i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

// rowsPerStatement caps a multi-row statement under MaxParams.
func (d *Dialect) rowsPerStatement(columns int) int {
	const maxRows = 500
	n := d.MaxParams / columns
	if n > maxRows {
		n = maxRows
	}
	if n < 1 {
		n = 1
	}
	return n
}
