// Package cliconfig loads server profiles for the mcpstdio command.
//
// A profile starts from MCPSTDIO_* environment variables (decoded with
// envdecode), is optionally overlaid by a YAML file, and may list variables
// that must be present before the server is launched. A dotenv file can be
// loaded first to supply credentials.
package cliconfig
