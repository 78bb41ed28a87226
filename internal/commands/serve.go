package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avanti-suite/timekeep/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve task totals and a live change stream over HTTP",
	Long: `Serve the task ledger over HTTP: totals, session listings and a
server-sent-events stream that pushes recomputed totals whenever the
ledger changes, so every viewer of a task sees the same number.`,
	Run: withRuntime(func(rt *runtime, cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rt.cfg.HTTPAddr
		}

		server := &http.Server{
			Addr:    addr,
			Handler: api.NewServer(rt.store, rt.log).Router(),
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		fmt.Printf("Listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Error: %v\n", err)
		}
	}),
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (defaults to TIMEKEEP_HTTP_ADDR or :8974)")
}
