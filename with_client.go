package mcpstdio

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts the server with the provided options,
// performs the handshake, executes the callback function, and stops the
// server when done.
//
// The callback receives a Client whose session is ready for requests.
// If the callback returns an error, it is returned to the caller.
// If Stop fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := mcpstdio.WithClient(ctx, func(c mcpstdio.Client) error {
//	    tools, err := c.Tools(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    for _, tool := range tools {
//	        fmt.Println(tool.Name)
//	    }
//	    return nil
//	},
//	    mcpstdio.WithLogger(log),
//	    mcpstdio.WithCommand("my-mcp-server"),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		// Stop gets its own context so a cancelled ctx still reaps the server.
		if stopErr := client.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			log.Warn("failed to stop client", "error", stopErr)
		}
	}()

	if err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	return fn(client)
}
