package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"meifacil/internal/core"
)

func TestWriteTransactionsCSV(t *testing.T) {
	created := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	txs := []core.Transaction{
		{
			ID:          "tx-1",
			Date:        core.NewDate(2025, 3, 1),
			Description: "Venda no balcão",
			Amount:      core.Money{Cents: 100050},
			Type:        core.Income,
			Category:    "Venda de Produtos",
			Attachment:  &core.Attachment{URL: "https://files.example/nf.pdf", Filename: "nf.pdf"},
			CreatedAt:   created,
		},
		{
			ID:          "tx-2",
			Date:        core.NewDate(2025, 3, 15),
			Description: `Compra de farinha, açúcar e "extras"`,
			Amount:      core.Money{Cents: 20000},
			Type:        core.Expense,
			CreatedAt:   created,
		},
	}

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, txs); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}

	if lines[0] != "ID,Data,Descrição,Tipo,Categoria,Valor,URL Anexo,Nome Anexo,Data Criação" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "tx-1,2025-03-01,Venda no balcão,income,Venda de Produtos,1000.50") {
		t.Errorf("row 1 = %q", lines[1])
	}

	// Fields with commas and quotes come out quoted and escaped.
	if !strings.Contains(lines[2], `"Compra de farinha, açúcar e ""extras"""`) {
		t.Errorf("row 2 should quote the description, got %q", lines[2])
	}
	// Uncategorized transaction leaves the category column empty.
	if !strings.Contains(lines[2], ",expense,,200.00") {
		t.Errorf("row 2 should have an empty category, got %q", lines[2])
	}
}

func TestWriteTransactionsCSVEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, nil); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}
	if got := strings.TrimRight(buf.String(), "\n"); strings.Count(got, "\n") != 0 {
		t.Errorf("empty ledger should produce only the header, got %q", got)
	}
}

func TestCSVFilename(t *testing.T) {
	got := CSVFilename(time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC))
	if got != "mei_facil_transacoes_2025-03-01.csv" {
		t.Errorf("CSVFilename() = %q", got)
	}
}
