package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kenes-socket-go/pkg/types"
)

var categoriesParent int64

func init() {
	categoriesCmd.Flags().Int64Var(&categoriesParent, "parent", types.NoParentID, "parent category id")
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List chat bot categories and exit",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func runCategories(cmd *cobra.Command, args []string) error {
	r, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	return r.run(cmd.Context(), func(ctx context.Context) error {
		if err := r.client.GetCategories(categoriesParent); err != nil {
			return err
		}

		timeout := r.connectTimeout()
		select {
		case <-r.printer.categories:
			return nil
		case <-time.After(timeout):
			return fmt.Errorf("no categories received within %s", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
