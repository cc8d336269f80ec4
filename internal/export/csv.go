// Package export renders the ledger for download: synchronous CSV and the
// Google Sheets upload performed by the worker.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"meifacil/internal/core"
)

// csvHeaders matches the column set users expect in the exported file.
var csvHeaders = []string{
	"ID", "Data", "Descrição", "Tipo", "Categoria", "Valor", "URL Anexo", "Nome Anexo", "Data Criação",
}

// CSVFilename names the download with today's date, e.g.
// "mei_facil_transacoes_2025-03-01.csv".
func CSVFilename(today time.Time) string {
	return "mei_facil_transacoes_" + today.Format("2006-01-02") + ".csv"
}

// WriteTransactionsCSV streams the ledger as RFC 4180 CSV. Amounts are
// decimal reais with a dot separator so spreadsheets parse them as numbers.
func WriteTransactionsCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range txs {
		if err := cw.Write(transactionRecord(tx)); err != nil {
			return fmt.Errorf("write csv row for %s: %w", tx.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func transactionRecord(tx core.Transaction) []string {
	var attachmentURL, attachmentFilename string
	if tx.Attachment != nil {
		attachmentURL = tx.Attachment.URL
		attachmentFilename = tx.Attachment.Filename
	}
	var createdAt string
	if !tx.CreatedAt.IsZero() {
		createdAt = tx.CreatedAt.Format("02/01/2006 15:04:05")
	}
	return []string{
		tx.ID,
		tx.Date.Format("2006-01-02"),
		tx.Description,
		string(tx.Type),
		tx.Category,
		formatAmount(tx.Amount.Cents),
		attachmentURL,
		attachmentFilename,
		createdAt,
	}
}

func formatAmount(cents int64) string {
	var b strings.Builder
	if cents < 0 {
		b.WriteByte('-')
		cents = -cents
	}
	b.WriteString(strconv.FormatInt(cents/100, 10))
	b.WriteByte('.')
	rem := cents % 100
	if rem < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(rem, 10))
	return b.String()
}
