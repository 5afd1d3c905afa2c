package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintechbi/internal/testutil"
	"fintechbi/internal/ui"
	"fintechbi/pkg/errors"
)

type memStore map[string]string

func (m memStore) Get(name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", errors.New(errors.ErrCodeCredentialMissing, "missing")
	}
	return v, nil
}

func (m memStore) Set(name, value string) error {
	m[name] = value
	return nil
}

// scriptedAsk answers each question by name through survey's own writer.
func scriptedAsk(answers map[string]interface{}) ui.AskFunc {
	return func(qs []*survey.Question, response interface{}, _ ...survey.AskOpt) error {
		for _, q := range qs {
			if err := core.WriteAnswer(response, q.Name, answers[q.Name]); err != nil {
				return err
			}
		}
		return nil
	}
}

type harness struct {
	app   *app
	dir   string
	store memStore
	logs  bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{app: newApp(), dir: t.TempDir(), store: memStore{}}
	h.app.logOut = &h.logs
	h.app.credentials = func() (credentialStore, error) { return h.store, nil }

	prev := ui.Out
	t.Cleanup(func() { ui.Out = prev })
	return h
}

func (h *harness) path(parts ...string) string {
	return filepath.Join(append([]string{h.dir}, parts...)...)
}

// writeConfig writes a config file that keeps every path inside the temp dir.
func (h *harness) writeConfig(t *testing.T) string {
	t.Helper()
	body := "warehouse:\n" +
		"  url: sqlite://" + h.path("warehouse", "fintech.db") + "\n" +
		"sources:\n" +
		"  transactions_csv: " + h.path("raw", "transactions.csv") + "\n" +
		"  users_json: " + h.path("raw", "users.json") + "\n" +
		"  products_csv: " + h.path("ref", "products.csv") + "\n" +
		"synth:\n" +
		"  raw_dir: " + h.path("raw") + "\n" +
		"  ref_dir: " + h.path("ref") + "\n" +
		"log:\n" +
		"  level: info\n"
	path := h.path("config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func (h *harness) execute(args ...string) (string, error) {
	root := newRootCmd(h.app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := newHarness(t).execute("--help")
	require.NoError(t, err)

	assert.Contains(t, out, "fintechbi")
	assert.Contains(t, out, "Available Commands:")
	for _, name := range []string{"generate", "run", "dashboard", "setup", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestRunHelpListsLoadedStatuses(t *testing.T) {
	out, err := newHarness(t).execute("run", "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "keeps settled, refunded and chargeback transactions")
}

func TestVersion(t *testing.T) {
	out, err := newHarness(t).execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "fintechbi version dev")
}

func TestUnknownCommand(t *testing.T) {
	_, err := newHarness(t).execute("deploy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestGenerateRunDashboard(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.writeConfig(t)

	out, err := h.execute("generate", "--config", cfgPath,
		"--users", "30", "--products", "5", "--txns", "300", "--days", "5", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 300 transactions")
	assert.FileExists(t, h.path("raw", "transactions.csv"))
	assert.FileExists(t, h.path("raw", "users.json"))
	assert.FileExists(t, h.path("ref", "products.csv"))

	metrics := h.path("metrics", "fintechbi.prom")
	require.NoError(t, os.MkdirAll(filepath.Dir(metrics), 0755))
	out, err = h.execute("run", "--config", cfgPath, "--metrics-file", metrics)
	require.NoError(t, err)
	assert.Contains(t, out, "dim_users")
	assert.Contains(t, out, "fact_transactions")
	assert.Contains(t, out, "SUCCESS:")
	assert.FileExists(t, h.path("warehouse", "fintech.db"))
	assert.FileExists(t, metrics)
	assert.Contains(t, h.logs.String(), `"run_id"`)

	out, err = h.execute("dashboard", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Fintech ETL & BI Demo")
	assert.Contains(t, out, "Days covered:")
	assert.Contains(t, out, "GMV over time")
	assert.Contains(t, out, "Daily active users")
	assert.Contains(t, out, "Product usage")
	assert.Contains(t, out, "P001")
}

func TestRunFlagOverridesWarehouseURL(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.writeConfig(t)

	_, err := h.execute("generate", "--config", cfgPath, "--users", "10", "--products", "3", "--txns", "50")
	require.NoError(t, err)

	other := h.path("other", "dw.db")
	_, err = h.execute("run", "--config", cfgPath, "--db-url", "sqlite://"+other, "--validation", "full")
	require.NoError(t, err)

	assert.FileExists(t, other)
	assert.NoFileExists(t, h.path("warehouse", "fintech.db"))
}

func TestRunRejectsUnknownUpsert(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.writeConfig(t)

	_, err := h.execute("run", "--config", cfgPath, "--upsert", "merge")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestRunSchemaViolation(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.writeConfig(t)

	_, err := h.execute("generate", "--config", cfgPath, "--users", "10", "--products", "3", "--txns", "50")
	require.NoError(t, err)

	testutil.WriteFile(t, h.path("raw"), "transactions.csv",
		testutil.TransactionsHeader+"T1,U000001,P001,-5.00,2025-07-01 10:00:00,settled\n")

	_, err = h.execute("run", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSchemaViolation))
	assert.NoFileExists(t, h.path("warehouse", "fintech.db"))
}

func TestDashboardMissingWarehouse(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.writeConfig(t)

	out, err := h.execute("dashboard", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run 'fintechbi run' first")
	assert.NoFileExists(t, h.path("warehouse", "fintech.db"))
}

func TestSetupWritesConfigAndStoresPassword(t *testing.T) {
	h := newHarness(t)
	h.app.ask = scriptedAsk(map[string]interface{}{
		"dialect":    "postgres",
		"url":        "postgres://etl@db:5432/fintech",
		"password":   "s3cret",
		"credential": "pg-prod",
		"upsert":     "auto",
		"validation": "full",
		"fee_rate":   "0.02",
		"level":      "warn",
		"pretty":     false,
		"save":       true,
	})

	path := h.path("new", "config.yaml")
	out, err := h.execute("setup", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved to "+path)

	assert.Equal(t, "s3cret", h.store["pg-prod"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "postgres://etl@db:5432/fintech")
	assert.Contains(t, string(data), "credential: pg-prod")
	assert.Contains(t, string(data), "mode: full")
	assert.NotContains(t, string(data), "s3cret")
}

func TestSetupKeepsExistingConfig(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.writeConfig(t)
	before, err := os.ReadFile(cfgPath)
	require.NoError(t, err)

	h.app.ask = scriptedAsk(map[string]interface{}{"overwrite": false})
	out, err := h.execute("setup", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Setup cancelled")

	after, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
