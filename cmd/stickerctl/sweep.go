package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sweepCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired temporary personalized stickers now",
		Long:  `Runs one expiry sweep with the same rules as the background sweeper: nothing is deleted while auto-delete is disabled in the runtime configuration.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Sweeper(nil).RunOnce(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			for _, e := range result.Errors {
				fmt.Fprintln(out, "  failed:", e)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d records could not be deleted", len(result.Errors))
			}
			return nil
		},
	}
}

func initConfigCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Seed the default runtime configuration keys",
		Long:  `Writes every default configuration key that is missing. Existing values are left as they are.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			seeded, err := a.InitializeDefaults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d configuration defaults initialized\n", seeded)
			return nil
		},
	}
}
