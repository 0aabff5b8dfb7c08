package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neighborhoods/VarnishAdmin/client"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of the varnishd child process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(c *client.Client) error {
			fmt.Println(c.ChildState())
			return nil
		})
	},
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cache process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(c *client.Client) error {
			return c.Start()
		})
	},
}

var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the cache process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(c *client.Client) error {
			return c.Stop()
		})
	},
}

var PingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the admin console answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(c *client.Client) error {
			body, err := c.Ping()
			if err != nil {
				return err
			}

			fmt.Println(string(body))

			return nil
		})
	},
}
