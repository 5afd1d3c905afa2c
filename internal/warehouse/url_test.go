package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintechbi/pkg/errors"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		dialect string
		path    string
	}{
		{"sqlite://warehouse/fintech.db", DialectSQLite, "warehouse/fintech.db"},
		{"sqlite:///var/lib/fintech.db", DialectSQLite, "/var/lib/fintech.db"},
		{"sqlite://fintech.db?_pragma=busy_timeout(5000)", DialectSQLite, "fintech.db"},
		{"postgres://etl@db:5432/fintech", DialectPostgres, ""},
		{"postgresql://etl:pw@db/fintech?sslmode=disable", DialectPostgres, ""},
		{"mysql://root:pw@db:3306/fintech", DialectMySQL, ""},
		{"snowflake://etl:pw@acct/FINTECH/PUBLIC?warehouse=WH", DialectSnowflake, ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			target, err := ParseURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, target.Dialect.Name)
			assert.Equal(t, tt.path, target.Path)
		})
	}
}

func TestParseURLErrors(t *testing.T) {
	tests := []struct {
		url  string
		code errors.ErrorCode
	}{
		{"sqlite://", errors.ErrCodeConfigInvalid},
		{"oracle://db/fintech", errors.ErrCodeUnsupportedDialect},
		{"warehouse.db", errors.ErrCodeUnsupportedDialect},
		{"postgres:///fintech", errors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestTargetPassword(t *testing.T) {
	target, err := ParseURL("postgres://etl@db/fintech")
	require.NoError(t, err)
	assert.True(t, target.NeedsPassword())

	target.SetPassword("s3cret")
	assert.False(t, target.NeedsPassword())

	dsn, err := target.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://etl:s3cret@db/fintech", dsn)
	assert.Equal(t, "postgres://etl:xxxxx@db/fintech", target.Redacted())

	sqlite, err := ParseURL("sqlite://fintech.db")
	require.NoError(t, err)
	assert.False(t, sqlite.NeedsPassword())
}

func TestMySQLDSN(t *testing.T) {
	target, err := ParseURL("mysql://root:pw@db/fintech?charset=utf8mb4")
	require.NoError(t, err)

	dsn, err := target.DSN()
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "pw", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "fintech", cfg.DBName)
}

func TestSnowflakeDSN(t *testing.T) {
	target, err := ParseURL("snowflake://etl:pw@acct/FINTECH/PUBLIC?warehouse=WH")
	require.NoError(t, err)

	dsn, err := target.DSN()
	require.NoError(t, err)

	cfg, err := gosnowflake.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "acct", cfg.Account)
	assert.Equal(t, "etl", cfg.User)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, "FINTECH", cfg.Database)
	assert.Equal(t, "PUBLIC", cfg.Schema)
	assert.Equal(t, "WH", cfg.Warehouse)
}

type failingCredentials struct{}

func (failingCredentials) Get(name string) (string, error) {
	return "", fmt.Errorf("no entry for %s", name)
}

func TestOpenCredentialFailure(t *testing.T) {
	_, err := Open(context.Background(), "postgres://etl@db/fintech", Options{
		Credential:  "warehouse",
		Credentials: failingCredentials{},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCredentialMissing))

	_, err = Open(context.Background(), "postgres://etl@db/fintech", Options{Credential: "warehouse"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCredentialMissing))
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintech.db")
	url := "sqlite://" + path

	ok, err := Exists(url)
	require.NoError(t, err)
	assert.False(t, ok)

	w, err := Open(context.Background(), url, Options{})
	require.NoError(t, err)
	require.NoError(t, w.CreateTables(context.Background()))
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	ok, err = Exists(url)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists("postgres://etl@db/fintech")
	require.NoError(t, err)
	assert.True(t, ok)
}
