package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"meifacil/internal/core"
	"meifacil/internal/report"
)

// SQLiteRepository is the report.ConfigStore implementation.
var _ report.ConfigStore = (*SQLiteRepository)(nil)

// ListConfigs returns all saved report configurations sorted by name.
func (r *SQLiteRepository) ListConfigs(ctx context.Context) ([]core.SavedReportConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_name, filters, selected_fields, visualization_type, visualization_config, updated_at
		FROM saved_reports
		ORDER BY report_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list saved reports: %w", err)
	}
	defer rows.Close()

	var out []core.SavedReportConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved reports: %w", err)
	}
	return out, nil
}

// UpsertConfig inserts a new configuration when it carries no ID and updates
// the existing row otherwise. The updated_at stamp is set here, not by the
// caller. Returns the stored config and whether a row was updated.
func (r *SQLiteRepository) UpsertConfig(ctx context.Context, cfg core.SavedReportConfig) (core.SavedReportConfig, bool, error) {
	if err := cfg.Validate(); err != nil {
		return core.SavedReportConfig{}, false, err
	}

	filtersJSON, err := json.Marshal(cfg.Filters)
	if err != nil {
		return core.SavedReportConfig{}, false, fmt.Errorf("marshal filters: %w", err)
	}
	fieldsJSON, err := json.Marshal(cfg.SelectedFields)
	if err != nil {
		return core.SavedReportConfig{}, false, fmt.Errorf("marshal selected fields: %w", err)
	}
	var vizConfig sql.NullString
	if cfg.VisualizationConfig != nil {
		b, err := json.Marshal(cfg.VisualizationConfig)
		if err != nil {
			return core.SavedReportConfig{}, false, fmt.Errorf("marshal visualization config: %w", err)
		}
		vizConfig = sql.NullString{String: string(b), Valid: true}
	}

	cfg.UpdatedAt = time.Now().UTC()

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO saved_reports (id, report_name, filters, selected_fields, visualization_type, visualization_config, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cfg.ID, cfg.ReportName, string(filtersJSON), string(fieldsJSON),
			cfg.VisualizationType, vizConfig, cfg.UpdatedAt.Format(timeLayout))
		if err != nil {
			return core.SavedReportConfig{}, false, fmt.Errorf("insert saved report: %w", err)
		}

		slog.InfoContext(ctx, "Saved report created", "id", cfg.ID, "report_name", cfg.ReportName)
		return cfg, false, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE saved_reports
		SET report_name = ?, filters = ?, selected_fields = ?, visualization_type = ?, visualization_config = ?, updated_at = ?
		WHERE id = ?`,
		cfg.ReportName, string(filtersJSON), string(fieldsJSON),
		cfg.VisualizationType, vizConfig, cfg.UpdatedAt.Format(timeLayout), cfg.ID)
	if err != nil {
		return core.SavedReportConfig{}, false, fmt.Errorf("update saved report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The caller supplied an ID we have never seen; store it as new
		// under that ID rather than silently dropping the save.
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO saved_reports (id, report_name, filters, selected_fields, visualization_type, visualization_config, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cfg.ID, cfg.ReportName, string(filtersJSON), string(fieldsJSON),
			cfg.VisualizationType, vizConfig, cfg.UpdatedAt.Format(timeLayout))
		if err != nil {
			return core.SavedReportConfig{}, false, fmt.Errorf("insert saved report with caller id: %w", err)
		}
		slog.InfoContext(ctx, "Saved report created with caller-supplied id", "id", cfg.ID, "report_name", cfg.ReportName)
		return cfg, false, nil
	}

	slog.InfoContext(ctx, "Saved report updated", "id", cfg.ID, "report_name", cfg.ReportName)
	return cfg, true, nil
}

// DeleteConfig removes a saved report. Deleting an absent ID succeeds.
func (r *SQLiteRepository) DeleteConfig(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.InfoContext(ctx, "Delete of absent saved report treated as success", "id", id)
		return nil
	}

	slog.InfoContext(ctx, "Saved report deleted", "id", id)
	return nil
}

func scanConfig(row rowScanner) (core.SavedReportConfig, error) {
	var (
		cfg          core.SavedReportConfig
		filtersJSON  string
		fieldsJSON   string
		vizConfig    sql.NullString
		updatedAtStr string
	)
	if err := row.Scan(&cfg.ID, &cfg.ReportName, &filtersJSON, &fieldsJSON,
		&cfg.VisualizationType, &vizConfig, &updatedAtStr); err != nil {
		return core.SavedReportConfig{}, fmt.Errorf("scan saved report: %w", err)
	}

	if err := json.Unmarshal([]byte(filtersJSON), &cfg.Filters); err != nil {
		return core.SavedReportConfig{}, fmt.Errorf("unmarshal filters for %s: %w", cfg.ID, err)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &cfg.SelectedFields); err != nil {
		return core.SavedReportConfig{}, fmt.Errorf("unmarshal selected fields for %s: %w", cfg.ID, err)
	}
	if vizConfig.Valid {
		if err := json.Unmarshal([]byte(vizConfig.String), &cfg.VisualizationConfig); err != nil {
			return core.SavedReportConfig{}, fmt.Errorf("unmarshal visualization config for %s: %w", cfg.ID, err)
		}
	}

	updatedAt, err := time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return core.SavedReportConfig{}, fmt.Errorf("parse stored updated_at %q: %w", updatedAtStr, err)
	}
	cfg.UpdatedAt = updatedAt

	return cfg, nil
}
