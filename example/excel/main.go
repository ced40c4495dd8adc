package main

import (
	"context"
	"fmt"
	"log"
	"time"

	sheetdb "github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/excel"
)

func main() {
	// Excel grid (no authentication required)
	grid, err := excel.New(&excel.Config{FilePath: "./example_data.xlsx"})
	if err != nil {
		log.Fatalf("Failed to create Excel grid: %v", err)
	}

	db := sheetdb.New(grid, &sheetdb.Config{
		DuplicateIDs: sheetdb.DuplicateIDsLastWins,
		AssignIDs:    true,
	})
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	ctx := context.Background()

	// 1. Add some records
	fmt.Println("Adding records...")
	users := []map[string]interface{}{
		{
			"id":         "1",
			"name":       "Alice Johnson",
			"email":      "alice@example.com",
			"age":        30,
			"department": "Engineering",
			"active":     true,
			"joined_at":  time.Now(),
		},
		{
			"id":         "2",
			"name":       "Bob Smith",
			"email":      "bob@example.com",
			"age":        25,
			"department": "Marketing",
			"active":     true,
			"joined_at":  time.Now().Add(-24 * time.Hour),
		},
		{
			"id":         "3",
			"name":       "Charlie Brown",
			"email":      "charlie@example.com",
			"age":        35,
			"department": "Engineering",
			"active":     false,
			"joined_at":  time.Now().Add(-48 * time.Hour),
		},
	}

	var records []sheetdb.Record
	for _, u := range users {
		r, err := sheetdb.NewRecord(u)
		if err != nil {
			log.Fatalf("Invalid record: %v", err)
		}
		records = append(records, r)
	}
	if err := db.SaveBatch(ctx, "users", records); err != nil {
		log.Fatalf("Failed to save users: %v", err)
	}
	fmt.Printf("Saved %d users\n", len(records))

	// 2. Query records
	fmt.Println("\nQuerying active engineers...")
	results, err := db.RunQuery(ctx, sheetdb.NewQuery("users").
		Where("department", "==", "Engineering").
		Where("active", "==", true))
	if err != nil {
		log.Printf("Query failed: %v", err)
	} else {
		for _, r := range results {
			fmt.Printf("- %s (age: %d)\n", r.GetAsString("name", ""), r.GetAsInt64("age", 0))
		}
	}

	// 3. Update a record
	fmt.Println("\nUpdating Bob's department...")
	bob, err := db.GetByIDs(ctx, "users", []string{"2"})
	if err == nil && len(bob) > 0 {
		updated := bob[0].Clone()
		updated.SetString("department", "Sales")
		updated.SetTime("updated_at", time.Now())
		if err := db.SaveBatch(ctx, "users", []sheetdb.Record{updated}); err != nil {
			log.Printf("Update failed: %v", err)
		} else {
			fmt.Println("Updated successfully")
		}
	}

	// 4. Type-safe setters; the id is generated
	fmt.Println("\nUsing type-safe methods...")
	diana := sheetdb.Record{}
	diana.SetString("name", "Diana Prince")
	diana.SetString("email", "diana@example.com")
	diana.SetInt64("age", 28)
	diana.SetBool("active", true)
	diana.SetStrings("skills", []string{"Java", "Python", "Go"})
	diana.SetTime("created_at", time.Now())

	if err := db.SaveBatch(ctx, "users", []sheetdb.Record{diana}); err != nil {
		log.Printf("Failed to save record: %v", err)
	}

	// 5. Streaming query with ordering and paging
	fmt.Println("\nFinding users between 25-35 years old...")
	stream := db.StreamQuery(ctx, sheetdb.NewQuery("users").
		Where("age", "between", []interface{}{25, 35}).
		OrderBy("age", false).
		WithLimit(10))
	for r, err := range stream.All() {
		if err != nil {
			log.Printf("Query failed: %v", err)
			break
		}
		fmt.Printf("- %s (age: %d, skills: %v)\n",
			r.GetAsString("name", ""),
			r.GetAsInt64("age", 0),
			r.GetAsStrings("skills", []string{}))
	}

	// 6. Delete inactive users
	n, err := db.DeleteByQuery(ctx, sheetdb.NewQuery("users").Where("active", "==", false))
	if err != nil {
		log.Printf("Delete failed: %v", err)
	} else {
		fmt.Printf("\nDeleted %d inactive users\n", n)
	}

	fmt.Println("\nExample completed. Check ./example_data.xlsx for the data.")
}
