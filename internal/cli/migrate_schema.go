package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/config"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/migrate"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

// MigrateSchemaCommand upgrades legacy flight documents to the enhanced shape.
type MigrateSchemaCommand struct {
	DatabasePath string
	DataDir      string
	DryRun       bool
}

func NewMigrateSchemaCommand() *MigrateSchemaCommand {
	return &MigrateSchemaCommand{}
}

func (cmd *MigrateSchemaCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("migrate-schema", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.DataDir, "data", config.DefaultDataDir, "Data directory holding the original snapshots (used to rebuild summaries)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show which documents would be migrated without changing them")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s migrate-schema [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Upgrade legacy flight documents to the enhanced schema in place,\n")
		fmt.Fprintf(os.Stderr, "adding route_info, best_flights_summary and price_range.\n\n")
		fmt.Fprintf(os.Stderr, "The original snapshot file is re-read when still present; otherwise\n")
		fmt.Fprintf(os.Stderr, "summaries are rebuilt from the stored document. Fields the new shape\n")
		fmt.Fprintf(os.Stderr, "does not map are preserved, and running twice changes nothing.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *MigrateSchemaCommand) Run() error {
	fmt.Println("Schema Migration")
	fmt.Println("================")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cmd.DatabasePath = absDBPath

	absDataDir, err := filepath.Abs(cmd.DataDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}
	cmd.DataDir = absDataDir

	fmt.Printf("Database: %s\n", cmd.DatabasePath)
	fmt.Printf("Data directory: %s\n", cmd.DataDir)

	s, err := store.Open(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	fmt.Println("\nMigrating flight documents...")

	res, err := migrate.New(s, cmd.DataDir).Run(cmd.DryRun)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("\n=== Migration Summary ===")
	fmt.Printf("Migrated: %d\n", res.Migrated)
	fmt.Printf("Already enhanced: %d\n", res.Skipped)
	if res.Errors > 0 {
		fmt.Printf("Errors: %d (see the log above for details)\n", res.Errors)
	}

	if cmd.DryRun {
		fmt.Println("\nDry run complete. Use without -dry-run to migrate.")
		return nil
	}

	fmt.Println("\nMigration complete!")
	return nil
}
