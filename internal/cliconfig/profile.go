package cliconfig

import (
	stderrors "errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	mcpstdio "github.com/wagiedev/mcp-stdio-go"
)

// Profile describes how to launch and talk to one MCP server.
//
// Example profile.yaml:
//
//	command: npx
//	args: ["-y", "@modelcontextprotocol/server-slack"]
//	ready_signal: "running on stdio"
//	startup_timeout: 30s
//	required_env: [SLACK_BOT_TOKEN, SLACK_TEAM_ID]
//	env:
//	  SLACK_BOT_TOKEN: ${SLACK_BOT_TOKEN}
//	  SLACK_TEAM_ID: ${SLACK_TEAM_ID}
type Profile struct {
	Command        string            `yaml:"command"         env:"MCPSTDIO_COMMAND"`
	Args           []string          `yaml:"args"            env:"MCPSTDIO_ARGS"`
	Env            map[string]string `yaml:"env"`
	RequiredEnv    []string          `yaml:"required_env"    env:"MCPSTDIO_REQUIRED_ENV"`
	ReadySignal    string            `yaml:"ready_signal"    env:"MCPSTDIO_READY_SIGNAL"`
	StartupTimeout time.Duration     `yaml:"startup_timeout" env:"MCPSTDIO_STARTUP_TIMEOUT,default=20s"`
	CallTimeout    time.Duration     `yaml:"call_timeout"    env:"MCPSTDIO_CALL_TIMEOUT,default=30s"`
	StartRetries   int               `yaml:"start_retries"   env:"MCPSTDIO_START_RETRIES,default=0"`
	ClientName     string            `yaml:"client_name"     env:"MCPSTDIO_CLIENT_NAME,default=mcpstdio"`
	ClientVersion  string            `yaml:"client_version"  env:"MCPSTDIO_CLIENT_VERSION,default=0.1.0"`
}

// MissingEnvError lists required variables that are unset or empty.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Names, ", ")
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is only an error when explicit is true.
func LoadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && stderrors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("load env file %s: %w", path, err)
	}

	return nil
}

// FromEnv builds a profile from MCPSTDIO_* variables and their defaults.
func FromEnv() (*Profile, error) {
	p := &Profile{}

	if err := envdecode.Decode(p); err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	return p, nil
}

// Load returns the environment profile overlaid with the YAML file at path.
// Keys absent from the file keep their environment values. Env values in
// the file are expanded against the process environment.
func Load(path string) (*Profile, error) {
	p, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	for k, v := range p.Env {
		p.Env[k] = os.ExpandEnv(v)
	}

	return p, nil
}

// Validate checks the profile can launch a server: a command is set and
// every required variable has a value in the profile env or the process
// environment.
func (p *Profile) Validate() error {
	if p.Command == "" {
		return fmt.Errorf("no server command: set command in the profile or MCPSTDIO_COMMAND")
	}

	if missing := p.MissingEnv(); len(missing) > 0 {
		return &MissingEnvError{Names: missing}
	}

	return nil
}

// MissingEnv returns the required variables without a value, sorted.
func (p *Profile) MissingEnv() []string {
	var missing []string

	for _, name := range p.RequiredEnv {
		if p.Env[name] != "" || os.Getenv(name) != "" {
			continue
		}

		missing = append(missing, name)
	}

	slices.Sort(missing)

	return slices.Compact(missing)
}

// ClientOptions converts the profile into client options.
func (p *Profile) ClientOptions() []mcpstdio.Option {
	opts := []mcpstdio.Option{
		mcpstdio.WithCommand(p.Command, p.Args...),
		mcpstdio.WithReadySignal(p.ReadySignal),
		mcpstdio.WithStartupTimeout(p.StartupTimeout),
		mcpstdio.WithCallToolTimeout(p.CallTimeout),
		mcpstdio.WithClientInfo(p.ClientName, p.ClientVersion),
	}

	if len(p.Env) > 0 {
		opts = append(opts, mcpstdio.WithEnv(maps.Clone(p.Env)))
	}

	if p.StartRetries > 0 {
		opts = append(opts, mcpstdio.WithStartRetries(p.StartRetries, 0))
	}

	return opts
}
