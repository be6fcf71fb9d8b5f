package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot and operators from the terminal",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	r, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	return r.run(cmd.Context(), func(ctx context.Context) error {
		r.printer.printf("Type /help for commands")
		return r.interact(ctx, cmd.InOrStdin())
	})
}
