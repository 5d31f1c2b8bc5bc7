package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/zonemap/pkg/cache"
	"github.com/matzehuels/zonemap/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache and API response stash",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. It empties the
// configured artifact backend and removes the API response stash.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var stashOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached artifacts and stashed API responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !stashOnly {
				cc, err := c.newCache(ctx, false)
				if err != nil {
					return err
				}
				defer cc.Close()

				if cl, ok := cc.(cache.Clearer); ok {
					n, err := cl.Clear(ctx)
					if err != nil && !os.IsNotExist(err) {
						return fmt.Errorf("clear artifacts: %w", err)
					}
					printSuccess("Cleared %d cached artifacts", n)
				} else if c.cfg != nil && c.cfg.Cache.Backend == config.CacheNone {
					printInfo("Artifact cache is disabled")
				}
			}

			stash := filepath.Join(c.cacheDir(), "http")
			if _, err := os.Stat(stash); os.IsNotExist(err) {
				printInfo("No stashed API responses")
				return nil
			}
			if err := os.RemoveAll(stash); err != nil {
				return fmt.Errorf("remove stash: %w", err)
			}
			printSuccess("Removed stashed API responses")
			printDetail("Directory: %s", stash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stashOnly, "stash-only", false, "only remove stashed API responses")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.cacheDir())
			return nil
		},
	}
}
