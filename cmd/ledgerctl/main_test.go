package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// run executes ledgerctl against dbPath and returns stdout and the error.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, dbPath, args...)
	return out, err
}

func runWithStderr(t *testing.T, dbPath string, args ...string) (string, string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"ledgerctl", "--db", dbPath}, args...))
	return strings.TrimSpace(out.String()), errOut.String(), err
}

func TestLedgerctl_InvokeAndGet(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, db, "invoke", "orderPay", "O1", "M1", "U1", "100", "50", "t0")
	require.NoError(t, err)
	assert.Equal(t, "orderPay finished successfully", out)

	out, err = run(t, db, "get", "--path", "points", "ORDERPAY_O1")
	require.NoError(t, err)
	assert.Equal(t, "100", out)

	out, err = run(t, db, "get", "ORDERPAY_O1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"O1","merchant_id":"M1","user_id":"U1","points":"100","cash":"50","timestamp":"t0"}`, out)
}

func TestLedgerctl_ErrorOutcomeExitsNonZero(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, db, "invoke", "withdraw", "W1", "U1", "10", "0.1", "1", "t3")
	require.NoError(t, err)

	_, err = run(t, db, "invoke", "withdraw", "W1", "U1", "10", "0.1", "1", "t3")
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
	assert.Contains(t, err.Error(), "duplicate_id")

	_, err = run(t, db, "invoke", "mint")
	assert.ErrorContains(t, err, "function error: mint")
}

func TestLedgerctl_Refunds(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, db, "invoke", "orderPay", "O1", "M1", "U1", "100", "50", "t0")
	require.NoError(t, err)
	_, err = run(t, db, "invoke", "orderRefund", "R1", "O1", "M1", "U1", "40", "20", "t1")
	require.NoError(t, err)

	out, err := run(t, db, "refunds", "O1")
	require.NoError(t, err)

	var totals map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.Equal(t, "40", totals["points"])
	assert.Equal(t, "20", totals["cash"])
	assert.Equal(t, float64(1), totals["count"])
}

func TestLedgerctl_RefundPolicyFlag(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, db, "invoke", "orderPay", "O1", "M1", "U1", "100", "50", "t0")
	require.NoError(t, err)

	_, err = run(t, db, "invoke", "orderRefund", "R1", "O1", "M1", "U1", "101", "1", "t1")
	assert.ErrorContains(t, err, "invariant_violation")

	_, err = run(t, db, "--refund-policy", "legacy", "invoke", "orderRefund", "R1", "O1", "M1", "U1", "101", "1", "t1")
	assert.NoError(t, err)
}

func TestLedgerctl_Init(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, db, "init", "chain-meta")
	require.NoError(t, err)
	assert.Equal(t, "init success.", out)

	out, err = run(t, db, "get", "METADATA")
	require.NoError(t, err)
	assert.Equal(t, "chain-meta", out)

	_, err = run(t, db, "get", "--path", "x", "MISSING")
	assert.ErrorContains(t, err, "no record under MISSING")
}

func TestLedgerctl_LogsGoToStderr(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, logs, err := runWithStderr(t, db, "--log-level", "info", "invoke", "orderPay", "O1", "M1", "U1", "100", "50", "t0")
	require.NoError(t, err)
	assert.Equal(t, "orderPay finished successfully", out)
	assert.Contains(t, logs, "invoke begin")

	out, _, err = runWithStderr(t, db, "--log-level", "debug", "get", "--path", "cash", "ORDERPAY_O1")
	require.NoError(t, err)
	assert.Equal(t, "50", out)
}
