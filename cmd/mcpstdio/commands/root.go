// Package commands provides the CLI commands for mcpstdio.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	mcpstdio "github.com/wagiedev/mcp-stdio-go"
	"github.com/wagiedev/mcp-stdio-go/internal/cliconfig"
)

// Version information set at build time
var Version = "0.1.0"

// app holds the state shared by every subcommand after flag parsing.
type app struct {
	logLevel string
	config   string
	envFile  string

	log     *slog.Logger
	profile *cliconfig.Profile
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mcpstdio",
		Short: "Talk to an MCP server over stdio",
		Long: `mcpstdio launches an MCP server as a child process, performs the
initialize handshake and issues tools/list and tools/call requests over
line-delimited JSON-RPC.

The server is described by a YAML profile (--config) or by MCPSTDIO_*
environment variables. Credentials can be supplied through a dotenv file.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "WARN", "Log level (DEBUG|INFO|WARN|ERROR)")
	root.PersistentFlags().StringVar(&a.config, "config", "", "Server profile (YAML)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before the profile")

	root.AddCommand(newRunCommand(a))
	root.AddCommand(newToolsCommand(a))
	root.AddCommand(newCallCommand(a))

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(a.logLevel))); err != nil {
		return fmt.Errorf("invalid log level %q", a.logLevel)
	}

	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := cliconfig.LoadEnvFile(a.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	profile, err := cliconfig.Load(a.config)
	if err != nil {
		return err
	}

	if err := profile.Validate(); err != nil {
		return err
	}

	a.profile = profile

	return nil
}

// withSession starts the configured server, performs the handshake and
// runs fn before stopping it.
func (a *app) withSession(ctx context.Context, cmd *cobra.Command, fn func(mcpstdio.Client) error) error {
	opts := append(a.profile.ClientOptions(),
		mcpstdio.WithLogger(a.log),
		mcpstdio.WithStderr(func(line string) {
			a.log.Debug("Server stderr", "line", line)
		}),
	)

	a.log.Info("Starting server", "command", a.profile.Command, "args", a.profile.Args)

	err := mcpstdio.WithClient(ctx, fn, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Client stopped")

	return nil
}
