package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/config"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/importer"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

// ImportCommand handles importing JSON snapshots from the data directory.
type ImportCommand struct {
	DataDir      string
	DatabasePath string
	Datasets     string
	LegacySchema bool
	Verbose      bool
	DryRun       bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.DataDir, "data", config.DefaultDataDir, "Data directory containing flights/, forex/ and geo/ subdirectories")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.Datasets, "datasets", "", "Comma-separated subset of datasets to import (flights,forex,geo); default all")
	fs.BoolVar(&cmd.LegacySchema, "legacy-schema", false, "Store flight documents in the legacy shape without summaries")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import flight, forex and geo JSON snapshots into the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Files already imported are skipped, so re-running is always safe.\n")
		fmt.Fprintf(os.Stderr, "Unreadable files are repaired where possible; files that resist every\n")
		fmt.Fprintf(os.Stderr, "repair still yield a partial record via pattern extraction.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import everything under ./data:\n")
		fmt.Fprintf(os.Stderr, "  %s import\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview a forex-only import:\n")
		fmt.Fprintf(os.Stderr, "  %s import -datasets forex -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := cmd.datasets(); err != nil {
		return err
	}

	return nil
}

func (cmd *ImportCommand) datasets() ([]entities.Dataset, error) {
	if cmd.Datasets == "" {
		return nil, nil
	}
	var out []entities.Dataset
	for _, name := range strings.Split(cmd.Datasets, ",") {
		name = strings.TrimSpace(name)
		d := entities.Dataset(name)
		switch d {
		case entities.DatasetFlights, entities.DatasetForex, entities.DatasetGeo:
			out = append(out, d)
		default:
			return nil, fmt.Errorf("unknown dataset %q (expected flights, forex or geo)", name)
		}
	}
	return out, nil
}

func (cmd *ImportCommand) Run() error {
	fmt.Println("Snapshot Import")
	fmt.Println("===============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	absDataDir, err := filepath.Abs(cmd.DataDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}
	cmd.DataDir = absDataDir

	fmt.Printf("Data directory: %s\n", cmd.DataDir)

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cmd.DatabasePath = absDBPath

	fmt.Printf("Database: %s\n", cmd.DatabasePath)

	s, err := store.Open(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	datasets, err := cmd.datasets()
	if err != nil {
		return err
	}

	fmt.Println("\nImporting snapshots...")

	coord := importer.New(s, cmd.DataDir, importer.Options{
		DryRun:         cmd.DryRun,
		Verbose:        cmd.Verbose,
		EnhancedSchema: !cmd.LegacySchema,
		Datasets:       datasets,
	})

	stats, err := coord.ImportAll()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Println("\n=== Import Summary ===")
	printDataset := func(name string, ds entities.DatasetStats) {
		if ds.Total == 0 {
			return
		}
		fmt.Printf("%-8s %d imported, %d skipped, %d errors (of %d)\n",
			name+":", ds.Success, ds.Skipped, ds.Errors, ds.Total)
	}
	printDataset("flights", stats.Flights)
	printDataset("forex", stats.Forex)
	printDataset("geo", stats.Geo)

	if stats.TotalErrors() > 0 {
		fmt.Printf("\n%d records could not be imported; see the log above for details.\n", stats.TotalErrors())
	}

	if cmd.DryRun {
		fmt.Println("\nDry run complete. Use without -dry-run to import.")
		return nil
	}

	fmt.Println("\nImport complete!")
	return nil
}
