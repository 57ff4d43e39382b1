package main

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "catalog.db")

	out, err := run(t, "--db", db, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema at version 1\n", out)

	// Running again is a no-op.
	out, err = run(t, "--db", db, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema at version 1\n", out)
}

func TestUserCreate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	args := []string{"--db", db, "user", "create",
		"--username", "admin", "--name", "Admin", "--email", "admin@example.com", "--password", "correct-horse"}

	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "created user 1 (admin)\n", out)

	_, err = run(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--username: That username is taken.")
	assert.Contains(t, err.Error(), "--email: That email is already registered.")
}

func TestUserCreate_Invalid(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")

	_, err := run(t, "--db", db, "user", "create", "--username", "x", "--password", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name: Name is required.")
	assert.Contains(t, err.Error(), "--password: Password must be at least 8 characters.")
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_KEY", "")

	_, err := run(t, "--db", ":memory:", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLogLevelFlag(t *testing.T) {
	_, err := run(t, "--db", ":memory:", "--log-level", "loud", "migrate")
	assert.ErrorContains(t, err, "LOG_LEVEL")
}
