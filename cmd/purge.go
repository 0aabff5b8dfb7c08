package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neighborhoods/VarnishAdmin/client"
)

var PurgeCmd = &cobra.Command{
	Use:   "purge <expression>",
	Short: "Invalidate every cached object matching a ban expression",
	Long: `Invalidate every cached object matching a ban expression

Usage
	varnishadmin purge 'obj.http.x-host ~ example.com'

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(c *client.Client) error {
			body, err := c.Purge(strings.Join(args, " "))
			if err != nil {
				return err
			}

			if len(body) > 0 {
				fmt.Println(string(body))
			}

			return nil
		})
	},
}

var PurgeURLCmd = &cobra.Command{
	Use:   "purge-url <url>",
	Short: "Invalidate the cached objects for a single URL",
	Long: `Invalidate the cached objects for a single URL

Usage
	varnishadmin purge-url http://example.com/pricing

`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(c *client.Client) error {
			body, err := c.PurgeURL(args[0])
			if err != nil {
				return err
			}

			if len(body) > 0 {
				fmt.Println(string(body))
			}

			return nil
		})
	},
}
