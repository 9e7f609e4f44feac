package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-stdio-go/internal/cliconfig"
	"github.com/wagiedev/mcp-stdio-go/internal/stubserver"
)

const stubEnv = "MCPSTDIO_TEST_STUB"

func TestMain(m *testing.M) {
	if os.Getenv(stubEnv) == "1" {
		os.Exit(stubserver.Main())
	}

	os.Exit(m.Run())
}

// stubProfile writes a profile that runs this test binary as the stub server.
func stubProfile(t *testing.T, extra string) string {
	t.Helper()

	self, err := os.Executable()
	require.NoError(t, err)

	content := fmt.Sprintf("command: %q\nready_signal: %q\nstartup_timeout: 10s\nenv:\n  %s: \"1\"\n%s",
		self, stubserver.ReadyLine, stubEnv, extra)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file", ""}, args...))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func TestTools(t *testing.T) {
	out, _, err := execute(t, "--config", stubProfile(t, ""), "tools")
	require.NoError(t, err)

	require.Contains(t, out, "Found 5 available tools:")
	require.Contains(t, out, "1. add\n   Description: Adds two numbers\n   Input schema: object")
	require.Contains(t, out, "2. echo")
}

func TestCall(t *testing.T) {
	out, stderr, err := execute(t, "--config", stubProfile(t, ""), "call", "echo", "--args", `{"x":1}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1}`, out)
	require.Contains(t, stderr, "Client stopped")
}

func TestCall_InvalidArgs(t *testing.T) {
	_, _, err := execute(t, "--config", stubProfile(t, ""), "call", "echo", "--args", `[1,2]`)
	require.ErrorContains(t, err, "--args must be a JSON object")
}

func TestRun_ProbeAndDuration(t *testing.T) {
	out, _, err := execute(t, "--config", stubProfile(t, ""), "run", "--probe", "--duration", "100ms")
	require.NoError(t, err)

	require.Contains(t, out, "Connected to "+stubserver.Name)
	require.Contains(t, out, "Testing tool: add")
	require.Contains(t, out, "a and b must be numbers")
	require.Contains(t, out, "Monitoring server")
}

func TestRequiredEnvMissing(t *testing.T) {
	path := stubProfile(t, "required_env: [MCPSTDIO_TEST_ABSENT_TOKEN]\n")

	_, _, err := execute(t, "--config", path, "tools")
	require.Error(t, err)

	missing, ok := err.(*cliconfig.MissingEnvError)
	require.True(t, ok, "got %v", err)
	require.Equal(t, []string{"MCPSTDIO_TEST_ABSENT_TOKEN"}, missing.Names)
}

func TestRequiredEnvFromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MCPSTDIO_TEST_FILE_TOKEN=abc\n"), 0o600))

	t.Cleanup(func() { _ = os.Unsetenv("MCPSTDIO_TEST_FILE_TOKEN") })

	path := stubProfile(t, "required_env: [MCPSTDIO_TEST_FILE_TOKEN]\n")

	out, _, err := execute(t, "--env-file", envFile, "--config", path, "tools")
	require.NoError(t, err)
	require.Contains(t, out, "Found 5 available tools:")
}

func TestSetupErrors(t *testing.T) {
	_, _, err := execute(t, "--log-level", "LOUD", "--config", stubProfile(t, ""), "tools")
	require.ErrorContains(t, err, "invalid log level")

	_, _, err = execute(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"), "tools")
	require.ErrorContains(t, err, "load env file")

	t.Setenv("MCPSTDIO_COMMAND", "")

	_, _, err = execute(t, "tools")
	require.True(t, strings.Contains(err.Error(), "no server command"), "got %v", err)
}
