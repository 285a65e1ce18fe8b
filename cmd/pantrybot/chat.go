package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"pantrybot"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the bot from the terminal",
		Long:  "Sends a single message when one is given, otherwise reads messages from stdin until EOF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			conversation, _ := cmd.Flags().GetString("conversation")
			debug, _ := cmd.Flags().GetBool("debug")

			prompt := color.New(color.FgCyan).Sprint("you> ")
			botName := color.New(color.FgGreen).Sprint("pantrybot> ")

			send := func(text string) {
				reply := a.Chat.Handle(cmd.Context(), conversation, text)
				fmt.Fprintln(cmd.OutOrStdout(), botName+reply)
				if debug {
					listing, err := a.Store.List(cmd.Context())
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), color.New(color.FgRed).Sprint(err))
						return
					}
					pantrybot.Dump(cmd.ErrOrStderr(), listing)
				}
			}

			if len(args) > 0 {
				send(strings.Join(args, " "))
				return nil
			}

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.OutOrStdout(), prompt)
			for scanner.Scan() {
				if text := strings.TrimSpace(scanner.Text()); text != "" {
					send(text)
				}
				fmt.Fprint(cmd.OutOrStdout(), prompt)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return scanner.Err()
		},
	}
	cmd.Flags().String("conversation", "terminal", "conversation id used for history")
	cmd.Flags().Bool("debug", false, "dump the inventory after every reply")
	return cmd
}
