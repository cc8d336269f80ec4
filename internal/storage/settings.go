package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"meifacil/internal/tax"
)

// MeiSettings is the singleton row holding the monthly DAS payment flag.
type MeiSettings struct {
	ID               string    `json:"id"`
	DASPaidThisMonth bool      `json:"das_paid_this_month"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CompanyProfile mirrors the CNPJ card data a MEI keeps on file. All fields
// besides the ID are optional.
type CompanyProfile struct {
	ID                  string    `json:"id"`
	CNPJ                string    `json:"cnpj,omitempty"`
	RazaoSocial         string    `json:"razao_social,omitempty"`
	NomeFantasia        string    `json:"nome_fantasia,omitempty"`
	DataAbertura        string    `json:"data_abertura,omitempty"` // YYYY-MM-DD
	Logradouro          string    `json:"logradouro,omitempty"`
	Numero              string    `json:"numero,omitempty"`
	Complemento         string    `json:"complemento,omitempty"`
	Bairro              string    `json:"bairro,omitempty"`
	Cidade              string    `json:"cidade,omitempty"`
	UF                  string    `json:"uf,omitempty"`
	CEP                 string    `json:"cep,omitempty"`
	TelefoneComercial   string    `json:"telefone_comercial,omitempty"`
	EmailComercial      string    `json:"email_comercial,omitempty"`
	CNAEsPrincipais     string    `json:"cnaes_principais,omitempty"`
	CNAEsSecundarios    string    `json:"cnaes_secundarios,omitempty"`
	TitularNomeCompleto string    `json:"titular_nome_completo,omitempty"`
	TitularCPF          string    `json:"titular_cpf,omitempty"`
	TitularEmail        string    `json:"titular_email,omitempty"`
	TitularTelefone     string    `json:"titular_telefone,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// GetMeiSettings returns the settings row, creating it with defaults on
// first access. A das-paid flag stamped in a prior month reads back as false.
func (r *SQLiteRepository) GetMeiSettings(ctx context.Context, id string, now time.Time) (MeiSettings, error) {
	var (
		s            MeiSettings
		paid         int
		updatedAtStr string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, das_paid_this_month, updated_at FROM mei_settings WHERE id = ?`, id).
		Scan(&s.ID, &paid, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		s = MeiSettings{ID: id, UpdatedAt: now.UTC()}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO mei_settings (id, das_paid_this_month, updated_at) VALUES (?, 0, ?)`,
			id, s.UpdatedAt.Format(timeLayout))
		if err != nil {
			return MeiSettings{}, fmt.Errorf("create default mei settings: %w", err)
		}
		slog.InfoContext(ctx, "Created default MEI settings", "id", id)
		return s, nil
	}
	if err != nil {
		return MeiSettings{}, fmt.Errorf("get mei settings: %w", err)
	}

	updatedAt, err := time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return MeiSettings{}, fmt.Errorf("parse stored updated_at %q: %w", updatedAtStr, err)
	}
	s.UpdatedAt = updatedAt
	s.DASPaidThisMonth = paid != 0 && tax.DASPaidStillCurrent(updatedAt, now)

	return s, nil
}

// SetDASPaid updates the monthly payment flag and refreshes its stamp.
func (r *SQLiteRepository) SetDASPaid(ctx context.Context, id string, paid bool, now time.Time) error {
	paidInt := 0
	if paid {
		paidInt = 1
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE mei_settings SET das_paid_this_month = ?, updated_at = ? WHERE id = ?`,
		paidInt, now.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("update das paid flag: %w", err)
	}

	slog.InfoContext(ctx, "DAS payment flag updated", "id", id, "paid", paid)
	return nil
}

// GetCompanyProfile fetches the profile row. A missing profile is not an
// error; it returns (nil, nil).
func (r *SQLiteRepository) GetCompanyProfile(ctx context.Context, id string) (*CompanyProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, cnpj, razao_social, nome_fantasia, data_abertura,
		       logradouro, numero, complemento, bairro, cidade, uf, cep,
		       telefone_comercial, email_comercial, cnaes_principais, cnaes_secundarios,
		       titular_nome_completo, titular_cpf, titular_email, titular_telefone,
		       updated_at
		FROM company_profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertCompanyProfile writes the profile row under its configured ID.
func (r *SQLiteRepository) UpsertCompanyProfile(ctx context.Context, p CompanyProfile) (CompanyProfile, error) {
	p.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_profiles (
			id, cnpj, razao_social, nome_fantasia, data_abertura,
			logradouro, numero, complemento, bairro, cidade, uf, cep,
			telefone_comercial, email_comercial, cnaes_principais, cnaes_secundarios,
			titular_nome_completo, titular_cpf, titular_email, titular_telefone,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cnpj = excluded.cnpj,
			razao_social = excluded.razao_social,
			nome_fantasia = excluded.nome_fantasia,
			data_abertura = excluded.data_abertura,
			logradouro = excluded.logradouro,
			numero = excluded.numero,
			complemento = excluded.complemento,
			bairro = excluded.bairro,
			cidade = excluded.cidade,
			uf = excluded.uf,
			cep = excluded.cep,
			telefone_comercial = excluded.telefone_comercial,
			email_comercial = excluded.email_comercial,
			cnaes_principais = excluded.cnaes_principais,
			cnaes_secundarios = excluded.cnaes_secundarios,
			titular_nome_completo = excluded.titular_nome_completo,
			titular_cpf = excluded.titular_cpf,
			titular_email = excluded.titular_email,
			titular_telefone = excluded.titular_telefone,
			updated_at = excluded.updated_at`,
		p.ID, p.CNPJ, p.RazaoSocial, p.NomeFantasia, p.DataAbertura,
		p.Logradouro, p.Numero, p.Complemento, p.Bairro, p.Cidade, p.UF, p.CEP,
		p.TelefoneComercial, p.EmailComercial, p.CNAEsPrincipais, p.CNAEsSecundarios,
		p.TitularNomeCompleto, p.TitularCPF, p.TitularEmail, p.TitularTelefone,
		p.UpdatedAt.Format(timeLayout))
	if err != nil {
		return CompanyProfile{}, fmt.Errorf("upsert company profile: %w", err)
	}

	slog.InfoContext(ctx, "Company profile saved", "id", p.ID)
	return p, nil
}

func scanProfile(row rowScanner) (CompanyProfile, error) {
	var (
		p            CompanyProfile
		updatedAtStr string
	)
	fields := []any{
		&p.ID, &p.CNPJ, &p.RazaoSocial, &p.NomeFantasia, &p.DataAbertura,
		&p.Logradouro, &p.Numero, &p.Complemento, &p.Bairro, &p.Cidade, &p.UF, &p.CEP,
		&p.TelefoneComercial, &p.EmailComercial, &p.CNAEsPrincipais, &p.CNAEsSecundarios,
		&p.TitularNomeCompleto, &p.TitularCPF, &p.TitularEmail, &p.TitularTelefone,
		&updatedAtStr,
	}
	if err := row.Scan(fields...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CompanyProfile{}, err
		}
		return CompanyProfile{}, fmt.Errorf("scan company profile: %w", err)
	}

	updatedAt, err := time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return CompanyProfile{}, fmt.Errorf("parse stored updated_at %q: %w", updatedAtStr, err)
	}
	p.UpdatedAt = updatedAt
	return p, nil
}
