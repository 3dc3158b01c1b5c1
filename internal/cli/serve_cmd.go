package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/mcp"
	"github.com/NotNullDev/nanomgmt/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record store over HTTP for remote clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Config.Auth.Secret == "" {
				return errors.New("auth.secret is required to serve (set NANOMGMT_AUTH_SECRET)")
			}
			if addr == "" {
				addr = app.Config.Server.Addr
			}
			handler, err := server.New(server.Config{
				Store:     app.Store,
				JWTSecret: app.Config.Auth.Secret,
				Logger:    app.Logger,
			})
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
			app.Logger.Info("serving records", "addr", ln.Addr().String(), "base", server.DefaultBasePath)
			return serveUntilDone(cmd.Context(), &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

// serveUntilDone serves on ln until ctx is cancelled, then shuts down
// gracefully.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func newTokenCmd(app *App) *cobra.Command {
	var user string
	var ttl time.Duration
	var roles []string
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Mint a bearer token for the record server",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = app.Config.User.ID
			}
			if user == "" {
				return errors.New("--user is required (or set user.id)")
			}
			token, err := server.IssueToken(app.Config.Auth.Secret, user, ttl, roles...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles to embed")
	return cmd
}

func newMCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve selection and task tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.Loader.LoadReference(ctx); err != nil {
				return err
			}
			srv := mcp.NewServer(mcp.Config{
				Engine:    app.Engine,
				Tasks:     app.Tasks,
				Dashboard: app.Dashboard,
				Logger:    app.Logger,
				Version:   app.Version,
			})
			return mcp.Run(ctx, srv)
		},
	}
}
