package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the environment-sourced configuration of the admin client.
// Command line flags override any of it.
type Config struct {
	// Host and Port locate varnishd's -T admin console.
	Host string `env:"VARNISH_ADMIN_HOST,default=127.0.0.1"`
	Port int    `env:"VARNISH_ADMIN_PORT,default=6082"`

	// Secret is the shared secret from varnishd's -S file. Only needed
	// when varnishd challenges on connect.
	Secret string `env:"VARNISH_ADMIN_SECRET"`

	// Version is the varnishd major version, e.g. "3" or "4.1".
	Version string `env:"VARNISH_ADMIN_VERSION,default=3"`

	// TimeoutSecs bounds the dial and each individual read, in seconds.
	TimeoutSecs int `env:"VARNISH_ADMIN_TIMEOUT,default=5"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			panic(err)
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
