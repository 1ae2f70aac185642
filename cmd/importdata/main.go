package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/database"
	"github.com/foodgram/foodgram/backend/internal/logging"
	"github.com/foodgram/foodgram/backend/internal/models"
)

func main() {
	ingredientsPath := flag.String("ingredients", "", "CSV file with name,measurement_unit rows")
	tagsPath := flag.String("tags", "", "CSV file with name,slug,color rows")
	flag.Parse()

	if *ingredientsPath == "" && *tagsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: importdata -ingredients ingredients.csv -tags tags.csv")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if *ingredientsPath != "" {
		if err := importFile(*ingredientsPath, func(r io.Reader) (importStats, error) {
			rows, err := readIngredients(r)
			if err != nil {
				return importStats{}, err
			}
			return importIngredients(db, rows)
		}); err != nil {
			logging.Fatal().Err(err).Str("file", *ingredientsPath).Msg("Ingredient import failed")
		}
	}

	if *tagsPath != "" {
		if err := importFile(*tagsPath, func(r io.Reader) (importStats, error) {
			rows, err := readTags(r)
			if err != nil {
				return importStats{}, err
			}
			return importTags(db, rows)
		}); err != nil {
			logging.Fatal().Err(err).Str("file", *tagsPath).Msg("Tag import failed")
		}
	}
}

type importStats struct {
	Created int
	Updated int
	Skipped int
}

func importFile(path string, fn func(io.Reader) (importStats, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	stats, err := fn(f)
	if err != nil {
		return err
	}
	logging.Info().
		Str("file", path).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Msg("Import finished")
	return nil
}

// readRows parses a CSV with a header row and returns each data row keyed by
// the requested columns. Column order in the file does not matter.
func readRows(r io.Reader, columns ...string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv is empty, header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q in header", col)
		}
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			row[col] = strings.TrimSpace(record[index[col]])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readIngredients(r io.Reader) ([]models.Ingredient, error) {
	rows, err := readRows(r, "name", "measurement_unit")
	if err != nil {
		return nil, err
	}
	out := make([]models.Ingredient, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Ingredient{Name: row["name"], MeasurementUnit: row["measurement_unit"]})
	}
	return out, nil
}

func readTags(r io.Reader) ([]models.Tag, error) {
	rows, err := readRows(r, "name", "slug", "color")
	if err != nil {
		return nil, err
	}
	out := make([]models.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Tag{Name: row["name"], Slug: row["slug"], Color: row["color"]})
	}
	return out, nil
}

// importIngredients inserts ingredients not yet present. An ingredient is
// identified by its name and measurement unit so there is nothing to update.
func importIngredients(db *gorm.DB, rows []models.Ingredient) (importStats, error) {
	var stats importStats
	for _, row := range rows {
		if row.Name == "" || row.MeasurementUnit == "" {
			stats.Skipped++
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Ingredient{}).
				Where("name = ? AND measurement_unit = ?", row.Name, row.MeasurementUnit).
				Count(&count).Error; err != nil {
				return fmt.Errorf("find ingredient %q: %w", row.Name, err)
			}
			if count > 0 {
				stats.Skipped++
				return nil
			}
			ingredient := row
			if err := tx.Create(&ingredient).Error; err != nil {
				return fmt.Errorf("create ingredient %q: %w", row.Name, err)
			}
			stats.Created++
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// importTags upserts tags by slug. Rows with an invalid color are skipped.
func importTags(db *gorm.DB, rows []models.Tag) (importStats, error) {
	var stats importStats
	for _, row := range rows {
		if row.Name == "" || row.Slug == "" || !models.ValidColor(row.Color) {
			logging.Warn().Str("slug", row.Slug).Msg("Skipping invalid tag row")
			stats.Skipped++
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var existing models.Tag
			err := tx.Where("slug = ?", row.Slug).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				tag := row
				if err := tx.Create(&tag).Error; err != nil {
					return fmt.Errorf("create tag %q: %w", row.Slug, err)
				}
				stats.Created++
			case err != nil:
				return fmt.Errorf("find tag %q: %w", row.Slug, err)
			default:
				existing.Name = row.Name
				existing.Color = row.Color
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("update tag %q: %w", row.Slug, err)
				}
				stats.Updated++
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}
