package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/scorer"
	"github.com/sells-group/identity-trust/internal/store"
)

// useTestConfig installs a config backed by a fresh sqlite file and
// restores the previous global when the test ends.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{
		Store: config.StoreConfig{
			Driver:           "sqlite",
			DatabaseURL:      filepath.Join(t.TempDir(), "trust.db"),
			RetryMaxAttempts: 2,
			RetryBackoffMs:   1,
		},
		Server: config.ServerConfig{Port: 8080, MaxRecords: 50},
		Batch:  config.BatchConfig{MaxConcurrentRecords: 4},
		Trust:  scorer.DefaultTrustConfig(),
		Monitoring: config.MonitoringConfig{
			LookbackWindowHours:        24,
			MinAssessments:             1,
			LowTrustScore:              40,
			LowTrustRateThreshold:      0.5,
			LowConfidenceScore:         60,
			LowConfidenceRateThreshold: 0.5,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}

	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
	return c
}

// execCmd runs cmd's RunE with the given flags and stdin, returning stdout
// and stderr. Flags are reset to their defaults afterwards.
func execCmd(t *testing.T, cmd *cobra.Command, stdin string, flags map[string]string, args ...string) (string, string, error) {
	t.Helper()

	for name, val := range flags {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, "unknown flag --%s", name)
		require.NoError(t, f.Value.Set(val))
	}
	t.Cleanup(func() {
		for name := range flags {
			f := cmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetIn(nil)
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})

	err := cmd.RunE(cmd, args)
	return stdout.String(), stderr.String(), err
}

// openTestStore opens the sqlite file the current config points at.
func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := initStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

const peopleJSONL = `{"id":"p-1","name":"Jane Roe","email":"jane@acme.io","phone":"555-0100","is_valid":true,"reg_date":"2019-04-01"}
{"id":"p-2","name":"John Roe","email":"john@gmail.com"}
{"id":"p-3","name":"Ada Lovelace","email":"ada@acme.io","city":"London"}
`
