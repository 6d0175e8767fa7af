package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/config"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/dedupe"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
	"github.com/luisvinatea/ChasquiFX-sub002/internal/store"
)

// DedupeCommand handles reconciling duplicate documents within collections.
type DedupeCommand struct {
	DatabasePath string
	Collection   string
	KeyFields    string
	Verbose      bool
	DryRun       bool
}

func NewDedupeCommand() *DedupeCommand {
	return &DedupeCommand{}
}

func (cmd *DedupeCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("dedupe", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.Collection, "collection", "", "Collection to reconcile (flights, forex or geo); default all")
	fs.StringVar(&cmd.KeyFields, "key", "", "Comma-separated identity fields overriding the collection default")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List every duplicate group")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Report duplicates without deleting anything")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s dedupe [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Collapse duplicate documents, keeping the newest copy of each group.\n\n")
		fmt.Fprintf(os.Stderr, "Recency is judged by created_at, then date_imported, then processed_at;\n")
		fmt.Fprintf(os.Stderr, "documents with no readable timestamp sort oldest. Running twice in a row\n")
		fmt.Fprintf(os.Stderr, "removes nothing the second time.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Preview duplicates across every collection:\n")
		fmt.Fprintf(os.Stderr, "  %s dedupe -dry-run -verbose\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Reconcile forex quotes on a custom identity:\n")
		fmt.Fprintf(os.Stderr, "  %s dedupe -collection forex -key currency_pair,created_at\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Collection != "" {
		switch entities.Dataset(cmd.Collection) {
		case entities.DatasetFlights, entities.DatasetForex, entities.DatasetGeo:
		default:
			return fmt.Errorf("unknown collection %q (expected flights, forex or geo)", cmd.Collection)
		}
	}

	if cmd.KeyFields != "" && cmd.Collection == "" {
		return fmt.Errorf("-key requires -collection")
	}

	return nil
}

func (cmd *DedupeCommand) Run() error {
	fmt.Println("Duplicate Reconciliation")
	fmt.Println("========================")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

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

	collections := []string{cmd.Collection}
	if cmd.Collection == "" {
		collections = collections[:0]
		for _, d := range entities.AllDatasets {
			collections = append(collections, string(d))
		}
	}

	rec := dedupe.New(s)
	var totalRemoved int

	for _, collection := range collections {
		spec := dedupe.DefaultKeySpec(collection)
		if cmd.KeyFields != "" {
			spec = dedupe.KeySpec(strings.Split(cmd.KeyFields, ","))
		}

		result, groups, err := rec.Reconcile(collection, spec, cmd.DryRun)
		if err != nil {
			return fmt.Errorf("failed to reconcile %s: %w", collection, err)
		}

		fmt.Printf("\n%s: %d duplicate groups, %d duplicates", collection, result.Groups, result.Duplicates)
		if cmd.DryRun {
			fmt.Printf(" (would remove %d)\n", result.Duplicates)
		} else {
			fmt.Printf(" (removed %d)\n", result.Removed)
		}
		totalRemoved += result.Removed

		if cmd.Verbose {
			for _, g := range groups {
				fmt.Printf("  %s: kept id %d of %d copies\n", g.Key, g.Retained.ID, len(g.Members))
			}
		}
	}

	if cmd.DryRun {
		fmt.Println("\nDry run complete. Use without -dry-run to reconcile.")
		return nil
	}

	fmt.Printf("\nReconciliation complete! %d duplicates removed.\n", totalRemoved)
	return nil
}
