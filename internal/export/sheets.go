package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"meifacil/internal/core"
)

// SheetsExporter writes the ledger to a Google spreadsheet using a Service
// Account. The worker calls it for each export job.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsExporterFromEnv builds an exporter from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default
// "Transações").
func NewSheetsExporterFromEnv(ctx context.Context) (*SheetsExporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transações"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing Google Service Account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Export replaces the configured sheet's contents with the full ledger,
// header row included.
func (e *SheetsExporter) Export(ctx context.Context, txs []core.Transaction) error {
	values := make([][]any, 0, len(txs)+1)

	header := make([]any, len(csvHeaders))
	for i, h := range csvHeaders {
		header[i] = h
	}
	values = append(values, header)

	for _, tx := range txs {
		record := transactionRecord(tx)
		row := make([]any, len(record))
		for i, field := range record {
			row[i] = field
		}
		values = append(values, row)
	}

	// Clear first so rows removed since the last export do not linger.
	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, e.sheetName, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, e.sheetName+"!A1", &gsheet.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Ledger exported to Google Sheets",
		"spreadsheet_id", e.spreadsheetID,
		"sheet", e.sheetName,
		"rows", len(txs))

	return nil
}
