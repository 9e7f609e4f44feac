package subprocess

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
)

// BuildEnvironment constructs the server process environment.
//
// It starts from the current environment, identifies the client, and then
// adds the configured entries in key order. Later entries win on lookup, so
// configured values override inherited ones.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	env = append(env, fmt.Sprintf("MCPSTDIO_CLIENT=%s/%s", options.ClientName, options.ClientVersion))

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}
