package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/botlolicute/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBotsAddListRemove(t *testing.T) {
	db := filepath.Join(t.TempDir(), "bots.db")
	cfg := filepath.Join(t.TempDir(), "farm.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("owner: Steve\n"), 0o644))

	out, err := execute(t, "--db", db, "bots", "add", "--name", "farm", "--username", "Loli", "--config", cfg)
	require.NoError(t, err)
	m := regexp.MustCompile(`added farm \((.+)\)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out, err = execute(t, "--db", db, "bots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "localhost:25565")
	assert.Contains(t, out, "offline")
	assert.Contains(t, out, "never")

	out, err = execute(t, "--db", db, "bots", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "removed "+id)

	_, err = execute(t, "--db", db, "bots", "rm", id)
	require.ErrorIs(t, err, store.ErrNotFound)

	out, err = execute(t, "--db", db, "bots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no bots registered")
}

func TestBotsAddRejectsBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("modes: ["), 0o644))
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "bots.db"), "bots", "add",
		"--name", "x", "--username", "Loli", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestPrintBots(t *testing.T) {
	seen := time.Now().Add(-3 * time.Minute)
	var buf bytes.Buffer
	printBots(&buf, []store.Bot{{
		ID: "1234", Name: "farm", Username: "Loli", Server: "mc.local", Port: 25570,
		Status: store.StatusOnline, CreatedAt: time.Now().Add(-48 * time.Hour), LastSeen: &seen,
	}})
	out := buf.String()
	assert.Contains(t, out, "mc.local:25570")
	assert.Contains(t, out, "3 minutes ago")
	assert.Contains(t, out, "2 days ago")
}
