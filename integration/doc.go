// Package integration holds tests that run real MCP servers. They need
// network access and npx, and only build with -tags integration.
package integration
