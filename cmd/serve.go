package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neighborhoods/VarnishAdmin/client"
	"github.com/neighborhoods/VarnishAdmin/gateway"
	"github.com/neighborhoods/VarnishAdmin/internal/env"
)

var (
	// The address the HTTP purge gateway listens on
	listenAddr string

	// Run the HTTP router in debug mode
	debugHTTP bool
)

func init() {
	flags := ServeCmd.PersistentFlags()

	flags.StringVar(&listenAddr, "listen", "0.0.0.0:6083", "the address the HTTP purge gateway listens on")
	flags.BoolVar(&debugHTTP, "debug-http", false, "run the HTTP router in debug mode")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP purge gateway in front of the admin console",
	Long: `Run an HTTP purge gateway in front of the admin console

Usage
	varnishadmin serve --listen 0.0.0.0:6083

The gateway holds one console session open and translates HTTP
requests into admin commands, so deploy pipelines and webhooks can
purge without speaking the management CLI.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		options, err := loadOptions(ctx, log)
		if err != nil {
			return err
		}

		c, err := client.New(options)
		if err != nil {
			return err
		}

		if _, err := c.Connect(); err != nil {
			return err
		}

		defer func() {
			if err := c.Quit(); err != nil {
				log.Warn("Console session did not end cleanly", zap.Error(err))
			}
		}()

		router := gateway.New(gateway.Options{
			Admin: c,
			Debug: debugHTTP,
			Log:   log.Named("gateway"),
		})

		listener, err := reuseport.Listen("tcp", listenAddr)
		if err != nil {
			return err
		}

		s := &http.Server{Handler: router}

		// Serving in a goroutine so it won't block the graceful shutdown
		// handling below
		go func() {
			if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Gateway listening",
			zap.String("listen", listenAddr),
			zap.String("varnishHost", options.Host),
			zap.Int("varnishPort", options.Port))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")

		return nil
	},
}
