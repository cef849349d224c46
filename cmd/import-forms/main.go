package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/database"
	"github.com/stemsi/formbank-backend/internal/logger"
	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/repository"
	"github.com/stemsi/formbank-backend/internal/service"
	"github.com/stemsi/formbank-backend/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: import-forms <export.json> [export.json ...]")
		fmt.Println("Each file is stored as a form. Files carrying questionbank_id replace that form.")
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := database.Migrate(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	db, dialect, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// The import runs without the cache; a running server revalidates on read.
	bankService := service.NewBankService(db,
		repository.NewBankRepository(dialect),
		repository.NewPageRepository(dialect),
		repository.NewCardRepository(dialect),
		repository.NewContentRepository(dialect, log),
		nil, log)
	exportService := service.NewExportService(bankService, log)

	files := os.Args[1:]
	fmt.Printf("=== Importing %d form file(s) ===\n", len(files))

	successCount := 0
	for _, path := range files {
		result, err := importFile(ctx, exportService, path)
		if err != nil {
			fmt.Printf("Error importing %s: %v\n", path, err)
			continue
		}
		successCount++
		action := "created"
		if result.Replaced {
			action = "replaced"
		}
		fmt.Printf("%s -> %s (%s)\n", path, result.ID, action)
	}

	fmt.Printf("\nImport completed! Successfully stored %d/%d forms.\n", successCount, len(files))
	if successCount != len(files) {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, exports *service.ExportService, path string) (*model.ExportResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var bank model.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := binding.Validator.ValidateStruct(&bank); err != nil {
		return nil, fmt.Errorf("invalid form: %v", validator.TranslateErrors(err))
	}
	if fields := validator.ValidateBank(&bank); fields != nil {
		return nil, fmt.Errorf("invalid form: %v", fields)
	}

	return exports.Export(ctx, &bank)
}
