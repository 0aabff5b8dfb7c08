package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/neighborhoods/VarnishAdmin/client"
	"github.com/neighborhoods/VarnishAdmin/cmd/gen"
	"github.com/neighborhoods/VarnishAdmin/internal/env"
)

var (
	// The host varnishd's admin console listens on
	host string

	// The admin console port
	port int

	// The varnishd major version ("3", "4", "4.1", ...)
	varnishVersion string

	// The shared admin secret, overrides VARNISH_ADMIN_SECRET
	secret string

	// Connect/read timeout in seconds
	timeoutSecs int
)

var rootCmd = &cobra.Command{
	Use:   "varnishadmin",
	Short: "Administer a running Varnish Cache over its management console",
	Long: `Administer a running Varnish Cache over its management console

varnishadmin speaks the text protocol of varnishd's -T admin socket:
it authenticates against the shared secret when varnishd demands it,
then issues cache invalidation and lifecycle commands.

Configuration comes from VARNISH_ADMIN_* environment variables (and a
.env.local file if present); command line flags override it.
`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&host, "host", "a", "", "the host varnishd's admin console listens on")
	flags.IntVarP(&port, "port", "p", 0, "the admin console port")
	flags.StringVar(&varnishVersion, "varnish-version", "", "the varnishd major version, e.g. 3 or 4.1")
	flags.StringVarP(&secret, "secret", "s", "", "the shared admin secret")
	flags.IntVarP(&timeoutSecs, "timeout", "t", 0, "connect/read timeout in seconds")

	rootCmd.AddCommand(
		StatusCmd,
		StartCmd,
		StopCmd,
		PurgeCmd,
		PurgeURLCmd,
		PingCmd,
		ServeCmd,
		VersionCmd,
		gen.RootCmd,
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadOptions merges environment configuration with flags. Flags win.
func loadOptions(ctx context.Context, log *zap.Logger) (client.Options, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return client.Options{}, err
	}

	if host != "" {
		conf.Host = host
	}
	if port != 0 {
		conf.Port = port
	}
	if varnishVersion != "" {
		conf.Version = varnishVersion
	}
	if secret != "" {
		conf.Secret = secret
	}
	if timeoutSecs != 0 {
		conf.TimeoutSecs = timeoutSecs
	}

	return client.Options{
		Host:    conf.Host,
		Port:    conf.Port,
		Version: conf.Version,
		Secret:  conf.Secret,
		Timeout: time.Duration(conf.TimeoutSecs) * time.Second,
		Log:     log.Named("client"),
	}, nil
}

// withClient connects a client, runs fn against it, and always ends
// the console session afterwards.
func withClient(cmd *cobra.Command, fn func(c *client.Client) error) (err error) {
	log, err := env.MakeLogger()
	if err != nil {
		return err
	}

	options, err := loadOptions(cmd.Context(), log)
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

	log.Debug("Connected to varnishd",
		zap.String("host", options.Host),
		zap.Int("port", options.Port))

	defer func() {
		err = multierr.Append(err, c.Quit())
	}()

	return fn(c)
}
