package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Attachment is an opaque reference to an uploaded receipt. Blob storage
	// lives elsewhere; we only keep the pointer.
	Attachment struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category,omitempty"` // empty = uncategorized
		Attachment  *Attachment     `json:"attachment,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
)

// IncomeCategories and ExpenseCategories are the recommended category names
// offered when recording a transaction. Free-form categories are still
// accepted; these lists only feed form population.
var (
	IncomeCategories = []string{
		"Venda de Produtos",
		"Prestação de Serviços",
		"Consultoria",
		"Aluguel de Bens",
		"Rendimentos de Aplicações",
		"Outras Receitas",
	}

	ExpenseCategories = []string{
		"Compras de Mercadorias/Insumos",
		"Aluguel (Espaço/Equipamento)",
		"Água, Luz, Internet, Telefone",
		"Transporte/Combustível",
		"Marketing/Publicidade",
		"Taxas e Impostos (exceto DAS)",
		"Software/Ferramentas Online",
		"Manutenção (Equipamentos/Veículo)",
		"Material de Escritório",
		"Serviços de Terceiros (Contador, Designer)",
		"Despesas Bancárias",
		"Pró-labore/Salário (se aplicável)",
		"Outras Despesas",
	}
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// NewDate creates a new Date from year, month, day (UTC, midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (optional dates are left unset).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MarshalJSON renders the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" or null. Empty values leave the
// date unset.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	return nil
}
