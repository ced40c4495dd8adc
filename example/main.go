package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/googlesheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Requests are paced to stay under the Sheets API quota
	config := googlesheets.DefaultConfig(os.Getenv("SPREADSHEET_ID"))

	// Initialize the Google Sheets grid with a JSON key file
	grid, err := googlesheets.NewWithJSONKeyFile(ctx, config, "./service-account.json")
	if err != nil {
		return fmt.Errorf("failed to create grid: %w", err)
	}

	db := sheetdb.New(grid, nil)
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach spreadsheet: %w", err)
	}

	// The users sheet and its columns are created on first save
	user := sheetdb.Record{}
	user.SetString("id", "john")
	user.SetString("name", "John Doe")
	user.SetString("email", "john@example.com")
	user.SetInt64("age", 30)
	user.SetTime("created_at", time.Now())

	if err := db.SaveBatch(ctx, "users", []sheetdb.Record{user}); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	fmt.Printf("Saved user %s\n", user.ID("id"))

	// Query records
	results, err := db.RunQuery(ctx, sheetdb.NewQuery("users").
		Where("age", ">=", 25).
		Where("age", "<=", 35).
		OrderBy("name", false).
		WithLimit(10))
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	fmt.Printf("Found %d users aged 25-35:\n", len(results))
	for _, record := range results {
		name := record.GetAsString("name", "Unknown")
		age := record.GetAsInt64("age", 0)
		fmt.Printf("  %s: %s (age: %d)\n", record.ID("id"), name, age)
	}

	// Update a record; fields missing from the record are cleared
	if len(results) > 0 {
		updated := results[0].Clone()
		updated.SetTime("last_login", time.Now())
		updated.SetInt64("login_count", updated.GetAsInt64("login_count", 0)+1)
		if err := db.SaveBatch(ctx, "users", []sheetdb.Record{updated}); err != nil {
			log.Printf("Failed to update record: %v", err)
		} else {
			fmt.Printf("Updated %s\n", updated.ID("id"))
		}
	}

	schema, err := db.GetTableSchema(ctx, "users")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	for _, f := range schema.Fields {
		fmt.Printf("  column %s: %s\n", f.Name, f.Type)
	}

	return nil
}
