package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStore_SQLite(t *testing.T) {
	useTestConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.Ping(context.Background()))
	n, err := st.CountAssessments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInitStore_Validation(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dsn     string
		wantErr string
	}{
		{"unknown driver", "mysql", "trust.db", "store.driver must be sqlite or postgres"},
		{"missing database url", "sqlite", "", "store.database_url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := useTestConfig(t)
			c.Store.Driver = tt.driver
			c.Store.DatabaseURL = tt.dsn

			st, err := initStore(context.Background())
			assert.Nil(t, st)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitStore_PostgresBadURL(t *testing.T) {
	c := useTestConfig(t)
	c.Store.Driver = "postgres"
	c.Store.DatabaseURL = "postgres://%zz"

	st, err := initStore(context.Background())
	assert.Nil(t, st)
	require.Error(t, err)
}
