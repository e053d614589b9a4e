package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"weddingrsvp/internal/config"
	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/repository"
	"weddingrsvp/internal/service"
)

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importInput := importCmd.String("input", "", "Guest list file, .csv or .json (required)")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportOutput := exportCmd.String("output", "", "Output file path (default: guests_YYYYMMDD_HHMMSS.json)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	repo := repository.NewGuestRepository(db)

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, repo, *importInput)

	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, db, repo, *exportOutput)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleImport(ctx context.Context, repo *repository.GuestRepository, inputPath string) {
	records, err := loadRecords(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	report, err := service.NewImportService(repo).Import(ctx, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Import finished: %d created, %d updated, %d errors\n",
		report.Created, report.Updated, len(report.Errors))
	for _, rowErr := range report.Errors {
		fmt.Printf("  row %d (%s): %s\n", rowErr.Row, rowErr.Name, rowErr.Message)
	}
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}

func loadRecords(path string) ([]service.ImportRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var records []service.ImportRecord
		if err := json.NewDecoder(f).Decode(&records); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return records, nil
	case ".csv":
		return parseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .csv or .json)", filepath.Ext(path))
	}
}

// parseCSV reads a guest list with a header row. Column order is free;
// unknown columns are ignored.
func parseCSV(r io.Reader) ([]service.ImportRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header row: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["full_name"]; !ok {
		return nil, fmt.Errorf("header must include full_name")
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []service.ImportRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		maxAcc := 0
		if v := field(row, "max_accompanying"); v != "" {
			maxAcc, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid max_accompanying %q", len(records)+2, v)
			}
		}

		records = append(records, service.ImportRecord{
			GuestCode:       field(row, "guest_code"),
			FullName:        field(row, "full_name"),
			Email:           field(row, "email"),
			Phone:           field(row, "phone"),
			Language:        field(row, "language"),
			InviteType:      field(row, "invite_type"),
			MaxAccompanying: maxAcc,
			IsPrimary:       strings.EqualFold(field(row, "is_primary"), "true"),
			GroupID:         field(row, "group_id"),
			Side:            field(row, "side"),
			Relationship:    field(row, "relationship"),
		})
	}
	return records, nil
}

func handleExport(ctx context.Context, db *database.DB, repo *repository.GuestRepository, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("guests_%s.json", time.Now().Format("20060102_150405"))
	}

	guests, err := allGuests(ctx, db, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(guests); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d guests to %s\n", len(guests), outputPath)
}

// allGuests walks the guest_code index so each guest loads with its
// companions.
func allGuests(ctx context.Context, db *database.DB, repo *repository.GuestRepository) ([]*models.Guest, error) {
	rows, err := db.Query(ctx, "SELECT guest_code FROM guests ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	guests := make([]*models.Guest, 0, len(codes))
	for _, code := range codes {
		g, err := repo.GuestByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if g != nil {
			guests = append(guests, g)
		}
	}
	return guests, nil
}

func printUsage() {
	fmt.Println("Usage: guestctl <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  import -input <file>     Import a guest list from CSV or JSON")
	fmt.Println("  export [-output <file>]  Export all guests to JSON")
}
