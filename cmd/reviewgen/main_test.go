package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/reviewgen/internal/config"
	"github.com/yourorg/reviewgen/internal/stats"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Stats.Path = filepath.Join(t.TempDir(), "stats.db")
	return cfg
}

func TestPromptCommandPrintsWithoutAPIKey(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{
		"prompt", "--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--store", "barvel-koza", "-k", "スタッフ最高", "--rating", "5", "--seed", "3",
	})
	require.NoError(t, root.Execute())

	s := out.String()
	assert.Contains(t, s, "=== system ===")
	assert.Contains(t, s, "=== user ===")
	assert.Contains(t, s, "星5")
	assert.Contains(t, s, `"maxTokens": 300`)
}

func TestPromptCommandRejectsUnknownStore(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"prompt", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--store", "nope"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "barvel-koza, cebuocto")
}

func TestNewAppSQLiteStats(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stats.Backend = stats.BackendSQLite

	a, err := newApp(context.Background(), cfg, zap.NewNop(), buildOpts{limiter: true})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.sqlite)
	require.NotNil(t, a.memStore)
	assert.Nil(t, a.rdb)
	assert.Nil(t, a.issuer)
}

func TestNewAppRedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.RateLimit.Backend = "redis"
	cfg.Stats.Backend = stats.BackendRedis

	a, err := newApp(context.Background(), cfg, zap.NewNop(), buildOpts{limiter: true})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.rdb)
	assert.Nil(t, a.memStore)
	res, err := a.limiter.Check(context.Background(), "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewAppRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Stats.Backend = stats.BackendRedis

	_, err := newApp(context.Background(), cfg, zap.NewNop(), buildOpts{})
	assert.Error(t, err)
}

func TestNewAppTokenIdentity(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Identity = "token"
	cfg.Session.Secret = "0123456789abcdef"

	a, err := newApp(context.Background(), cfg, zap.NewNop(), buildOpts{limiter: true})
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.issuer)
}

func TestPromptCommandReportsRequestDetail(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"prompt", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--rating", "9"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating must be between 1 and 5")
}

func TestStatsCommandWindowOnSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "stats:\n  backend: sqlite\n  path: " + filepath.Join(dir, "stats.db") + "\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"stats", "--config", cfgFile, "--since", "1h"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "total: 0")
}
