package app

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brcfg "verge/internal/config"
	"verge/internal/gateway/notifier"
)

func loadConfig(t *testing.T, extra string) *brcfg.Config {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`app:
  env: test
  http_addr: 127.0.0.1:0
store:
  sessions_path: %s
  logs_path: %s
%s`, filepath.Join(dir, "verge.db"), filepath.Join(dir, "analysis.db"), extra)
	path := filepath.Join(dir, "verge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err := brcfg.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNewAppWiresComponents(t *testing.T) {
	cfg := loadConfig(t, "")
	app, err := NewApp(cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.monitor)
	assert.NotNil(t, app.scanner)
	assert.NotNil(t, app.hub)
	assert.NotNil(t, app.liveHTTP)
	assert.Contains(t, app.Summary.String(), "market source: binance")
	assert.Contains(t, app.Summary.String(), "http: 127.0.0.1:0")
	assert.FileExists(t, cfg.Store.SessionsPath)
}

func TestNewAppHonoursDisabledComponents(t *testing.T) {
	cfg := loadConfig(t, `scanner:
  enabled: false
notify:
  websocket:
    enabled: false
fundamentals:
  enabled: false
analytics:
  remote_url: http://127.0.0.1:1
`)
	app, err := NewApp(cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.scanner)
	assert.Nil(t, app.hub)
	assert.Contains(t, app.Summary.String(), "scanner: disabled")
	assert.Contains(t, app.Summary.String(), "local fallback")
}

func TestProvideSinkFallsBackToNop(t *testing.T) {
	cfg := &brcfg.Config{}
	assert.Equal(t, notifier.Nop{}, provideSink(cfg, nil))

	hub := notifier.NewHub()
	sink := provideSink(cfg, hub)
	multi, ok := sink.(notifier.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 1)
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	app, err := NewApp(loadConfig(t, ""))
	require.NoError(t, err)
	app.Close()
	app.Close()
}
