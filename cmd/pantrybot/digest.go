package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Post the expiry digest to Slack",
		Long:  "Evaluates what expires within EXPIRY_THRESHOLD_DAYS and posts it to SLACK_CHANNEL. Without SLACK_WEBHOOK_URL the digest is only printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := a.Digest(cmd.Context())
			if text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return err
		},
	}
}
