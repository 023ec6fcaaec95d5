package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hapd/pkg/client"
)

type clientContextKey struct{}

type loggerContextKey struct{}

// WithClient returns ctx carrying the admin API client used by every command.
func WithClient(ctx context.Context, c client.ClientInterface) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

func clientFromCmd(cmd *cobra.Command) (client.ClientInterface, error) {
	c, ok := cmd.Context().Value(clientContextKey{}).(client.ClientInterface)
	if !ok || c == nil {
		return nil, errors.New("client not found in context")
	}
	return c, nil
}
