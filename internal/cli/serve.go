package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shlokDS16/flow-state-studio/internal/assistant"
	"github.com/shlokDS16/flow-state-studio/internal/chat"
	"github.com/shlokDS16/flow-state-studio/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API and chat over HTTP",
		Args:  exactArgs(0, "serve [--addr host:port]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			completer, err := chat.NewCompleter(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			sessions := chat.NewSessions(a.cfg.Server.MaxSessions, func() *chat.Conversation {
				return chat.NewConversation(assistant.NewExecutor(s, a.logger), s, completer, a.logger)
			})
			srv := server.New(s, sessions, a.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(gctx, addr)
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shutdown requested", zap.Error(context.Cause(gctx)))
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr from config)")
	return cmd
}
