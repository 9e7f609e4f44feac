package subprocess

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
)

func TestLineBuffer_EvictsOldest(t *testing.T) {
	b := NewLineBuffer(3)

	for i := range 5 {
		b.Append(fmt.Sprintf("l%d", i))
	}

	require.Equal(t, 3, b.Len())
	require.Equal(t, []string{"l2", "l3", "l4"}, b.Lines())
	require.Equal(t, []string{"l3", "l4"}, b.Last(2))
	require.Equal(t, []string{"l2", "l3", "l4"}, b.Last(10))
	require.Empty(t, b.Last(0))
	require.True(t, b.Contains("l4"))
	require.False(t, b.Contains("l1"), "evicted lines are gone")
}

func TestLineBuffer_PartiallyFilled(t *testing.T) {
	b := NewLineBuffer(10)
	b.Append("a")
	b.Append("b")

	require.Equal(t, []string{"a", "b"}, b.Lines())
	require.Equal(t, []string{"b"}, b.Last(1))
}

func TestLineBuffer_ConcurrentAppend(t *testing.T) {
	b := NewLineBuffer(100)

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			for range 100 {
				b.Append("x")
				_ = b.Last(5)
			}
		})
	}

	wg.Wait()
	require.Equal(t, 100, b.Len())
}

func TestBuildEnvironment(t *testing.T) {
	t.Setenv("MCPSTDIO_TEST_INHERITED", "yes")

	opts := &config.Options{
		ClientName:    "mcp-python-client",
		ClientVersion: "1.0.0",
		Env: map[string]string{
			"SLACK_TEAM_ID":   "T123",
			"SLACK_BOT_TOKEN": "xoxb-test",
		},
	}

	env := BuildEnvironment(opts)

	require.Contains(t, env, "MCPSTDIO_TEST_INHERITED=yes")
	require.Contains(t, env, "MCPSTDIO_CLIENT=mcp-python-client/1.0.0")

	tail := env[len(env)-2:]
	require.Equal(t, []string{"SLACK_BOT_TOKEN=xoxb-test", "SLACK_TEAM_ID=T123"}, tail, "configured entries sorted and last")
	require.Len(t, env, len(os.Environ())+3)

	for _, kv := range env {
		require.True(t, strings.Contains(kv, "="), kv)
	}
}
