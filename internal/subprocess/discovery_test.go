package subprocess

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
)

func writeExecutable(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))

	return path
}

func TestResolveCommand_CommonDir(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	dir := t.TempDir()
	want := writeExecutable(t, dir, "my-mcp-server", 0o755)

	got, err := resolveCommand(slog.Default(), "my-mcp-server", []string{t.TempDir(), dir})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolveCommand_PathWins(t *testing.T) {
	pathDir := t.TempDir()
	want := writeExecutable(t, pathDir, "my-mcp-server", 0o755)
	t.Setenv("PATH", pathDir)

	other := t.TempDir()
	writeExecutable(t, other, "my-mcp-server", 0o755)

	got, err := resolveCommand(slog.Default(), "my-mcp-server", []string{other})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestResolveCommand_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	dir := t.TempDir()
	writeExecutable(t, dir, "my-mcp-server", 0o644)

	_, err := resolveCommand(slog.Default(), "my-mcp-server", []string{dir})

	notFound, ok := stderrors.AsType[*errors.CommandNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"$PATH", filepath.Join(dir, "my-mcp-server")}, notFound.SearchedPaths)
}

func TestResolveCommand_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	want := writeExecutable(t, dir, "srv", 0o755)

	got, err := resolveCommand(slog.Default(), want, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = resolveCommand(slog.Default(), filepath.Join(dir, "missing"), nil)

	notFound, ok := stderrors.AsType[*errors.CommandNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{filepath.Join(dir, "missing")}, notFound.SearchedPaths)
}
