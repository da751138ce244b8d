package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/config"
)

// A fetch failure must surface as an error from RunE so deferred cleanup
// still runs, rather than exiting the process from inside the command.
func TestSyncCmd_FetchErrorReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "papers.db"),
		},
		Feed: config.FeedConfig{
			BaseURL:    srv.URL,
			Category:   "cs.AI",
			WindowDays: 7,
		},
	}

	syncCmd.SetContext(context.Background())
	err := syncCmd.RunE(syncCmd, nil)
	require.Error(t, err)
	assert.True(t, syncCmd.SilenceUsage)
}
