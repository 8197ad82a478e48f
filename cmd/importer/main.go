// Package main imports the historical exercises.json file into the
// catalog table. One-shot operational tool.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/model"
	"github.com/stretchcoach/coach-backend/internal/store"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	tableName := flag.String("table", os.Getenv("EXERCISES_TABLE_NAME"),
		"name of the catalog table (default: EXERCISES_TABLE_NAME)")
	region := flag.String("region", os.Getenv("AWS_REGION"), "AWS region (optional)")
	flag.Parse()

	if *tableName == "" {
		log.Fatal().Msg("table name required via -table or EXERCISES_TABLE_NAME")
	}
	if flag.NArg() != 1 {
		log.Fatal().Msg("usage: importer [flags] <exercises.json>")
	}

	items, skipped, err := loadItems(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load source file")
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("entries without usable id skipped")
	}

	ctx := context.Background()
	var optFns []func(*awsconfig.LoadOptions) error
	if *region != "" {
		optFns = append(optFns, awsconfig.WithRegion(*region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	writer := store.NewBatchWriter(dynamodb.NewFromConfig(cfg), *tableName)
	imported, err := writer.WriteAll(ctx, items)
	if err != nil {
		log.Fatal().Err(err).Int("imported", imported).Msg("import failed")
	}

	fmt.Printf("%d Übungen importiert.\n", imported)
}

// loadItems reads the JSON array and prepares the marshaled records.
// Entries with a missing or reserved id are skipped; the remaining
// fields are copied verbatim with nulls dropped.
func loadItems(path string) ([]map[string]types.AttributeValue, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var entries []map[string]any
	if err := dec.Decode(&entries); err != nil {
		return nil, 0, fmt.Errorf("source file is not a JSON array of objects: %w", err)
	}

	var items []map[string]types.AttributeValue
	skipped := 0
	for _, entry := range entries {
		id := entryID(entry["id"])
		if id == "" || model.IsReservedID(id) {
			skipped++
			continue
		}

		record := map[string]any{"exercise_id": id, "id": id}
		for key, value := range entry {
			if key == "exercise_id" || key == "id" || value == nil {
				continue
			}
			record[key] = value
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to marshal entry %s: %w", id, err)
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

func entryID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
