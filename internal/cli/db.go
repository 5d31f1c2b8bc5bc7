package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/source/sqlite"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// dbCommand creates the db command for local SQLite zone databases.
func (c *CLI) dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Create and fill a SQLite zone database",
		Long: `The db commands manage a SQLite database with the scanner's schema. The
database is taken from --db, or from source.path when source.kind is
"sqlite".`,
	}
	cmd.AddCommand(c.dbInitCommand())
	cmd.AddCommand(c.dbImportCommand())
	return cmd
}

// dbPath resolves the database the db commands work on.
func (c *CLI) dbPath() (string, error) {
	if c.cfg != nil && c.cfg.Source.Kind == source.KindSQLite && c.cfg.Source.Path != "" {
		return c.cfg.Source.Path, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "no database: pass --db or set source.kind = \"sqlite\"")
}

func (c *CLI) dbInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the zone tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.dbPath()
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Initialized %s", StyleValue.Render(path))
			return nil
		},
	}
}

func (c *CLI) dbImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <zones.json>",
		Short: "Import zones from a JSON file",
		Long: `Import reads a zone list (a bare array or {"zones": [...]}) and writes it
into the database, creating the tables if needed. Existing zones with the
same id are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.dbPath()
			if err != nil {
				return err
			}
			zones, rep, err := zone.ImportJSON(args[0])
			if err != nil {
				return err
			}
			rep.Log(c.Logger, args[0])

			ctx := cmd.Context()
			store, err := sqlite.Open(ctx, path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			spin := newSpinnerWithContext(ctx, fmt.Sprintf("Importing %d zones...", len(zones)))
			spin.Start()
			if err := store.Import(ctx, zones); err != nil {
				spin.StopWithError(errors.UserMessage(err))
				return err
			}
			spin.StopWithSuccess(fmt.Sprintf("Imported %s zones into %s", StyleNumber.Render(strconv.Itoa(len(zones))), StyleValue.Render(path)))
			if !rep.Clean() {
				printWarning("%d records skipped, %d fields coerced (see --verbose)", rep.Skipped, len(rep.Issues))
			}
			return nil
		},
	}
}
