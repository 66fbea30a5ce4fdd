package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/api"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve project boards over HTTP",
	Long:  "Starts the HTTP API. The acting user is read from the " + api.HeaderUserID + " header of each request.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	addr := sess.cfg.Server.Listen
	if serveListen != "" {
		addr = serveListen
	}

	e := api.NewServer(sess.store, sess.hub, sess.notes, sess.log, sess.cfg.RequestTimeout())

	errCh := make(chan error, 1)
	go func() {
		sess.log.WithField("addr", addr).Info("serving")
		errCh <- e.Start(addr)
	}()
	fmt.Printf("Listening on %s\n", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	sess.log.Info("server stopped")
	return nil
}
