package seedcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/sparky/cmd/sparky/wiring"
	"github.com/papercomputeco/sparky/pkg/config"
	"github.com/papercomputeco/sparky/pkg/store/demo"
	"github.com/papercomputeco/sparky/pkg/store/sqlstore"
)

const seedLongDesc string = `Create the ChillSpace tables and load demo data.

Creates the users, shared_files and messages tables if they don't exist
and inserts a small demo data set, so the assistant can be tried against a
real SQL store. Only the sqlite and postgres drivers are supported.

Examples:
  sparky seed --db-driver sqlite --db ./chillspace.db
  sparky seed --db-driver postgres --db postgres://localhost:5432/chillspace`

const seedShortDesc string = "Load demo data into a SQL store"

type seedCommander struct {
	flags wiring.Flags
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        seedShortDesc,
		Long:         seedLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.flags.Register(cmd)

	return cmd
}

func (c *seedCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.flags.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if cfg.Store.Driver != config.DriverSQLite && cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("seed requires the sqlite or postgres driver, got %q", cfg.Store.Driver)
	}

	driver, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("could not open %s store: %w", cfg.Store.Driver, err)
	}
	defer driver.Close()

	if err := driver.Migrate(ctx); err != nil {
		return err
	}

	data := demo.New(time.Now())
	for _, u := range data.Users {
		if _, err := driver.InsertUser(ctx, u); err != nil {
			return fmt.Errorf("could not insert user %s: %w", u.Username, err)
		}
	}
	for _, f := range data.Files {
		if _, err := driver.InsertFile(ctx, f); err != nil {
			return fmt.Errorf("could not insert file %s: %w", f.OriginalFilename, err)
		}
	}
	for _, m := range data.Messages {
		if _, err := driver.InsertMessage(ctx, m); err != nil {
			return fmt.Errorf("could not insert message: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d files and %d messages into %s\n",
		len(data.Users), len(data.Files), len(data.Messages), cfg.Store.Driver)
	return nil
}
