package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gastos/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when an update or delete matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConstraint is returned on unique or foreign-key violations, e.g.
	// deleting a category that transactions still reference.
	ErrConstraint = errors.New("constraint violation")
)

const timestampLayout = "2006-01-02 15:04:05"

// SQLiteRepository is the single persistence collaborator. Every read and
// write of categories, transactions and recurring templates goes through it;
// nothing is cached here, so each call observes current state.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nombre, tipo, color, created_at FROM categorias ORDER BY tipo, nombre`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var (
			c       core.Category
			created string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.Color, &created); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = parseTimestamp(created)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	color := c.Color
	if color == "" {
		color = "#3498db"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categorias (nombre, tipo, color) VALUES (?, ?, ?)`,
		c.Name, string(c.Kind), color)
	if err != nil {
		return 0, wrapSQLError("create category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create category id: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "id", id, "nombre", c.Name, "tipo", c.Kind)
	return id, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id int64, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categorias SET nombre = ?, tipo = ?, color = ? WHERE id = ?`,
		c.Name, string(c.Kind), c.Color, id)
	if err != nil {
		return wrapSQLError("update category", err)
	}
	return requireAffected(res, "update category")
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categorias WHERE id = ?`, id)
	if err != nil {
		return wrapSQLError("delete category", err)
	}
	return requireAffected(res, "delete category")
}

// --- Transactions ---

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	From core.Date
	To   core.Date
	Kind core.Kind
}

// TransactionRow is a transaction joined with its category's display data.
type TransactionRow struct {
	core.Transaction
	CategoryName  string
	CategoryColor string
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error) {
	query := `
		SELECT t.id, t.descripcion, t.monto_centavos, t.tipo, t.categoria_id, t.fecha,
		       t.created_at, t.updated_at, c.nombre, c.color
		FROM transacciones t
		JOIN categorias c ON t.categoria_id = c.id
		WHERE 1=1`
	var args []any
	if !f.From.IsZero() {
		query += ` AND t.fecha >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND t.fecha <= ?`
		args = append(args, f.To.String())
	}
	if f.Kind != "" {
		query += ` AND t.tipo = ?`
		args = append(args, string(f.Kind))
	}
	query += ` ORDER BY t.fecha DESC, t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		row, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.descripcion, t.monto_centavos, t.tipo, t.categoria_id, t.fecha,
		       t.created_at, t.updated_at, c.nombre, c.color
		FROM transacciones t
		JOIN categorias c ON t.categoria_id = c.id
		WHERE t.id = ?`, id)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("get transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return TransactionRow{}, fmt.Errorf("get transaction: %w", err)
		}
		return TransactionRow{}, fmt.Errorf("get transaction %d: %w", id, ErrNotFound)
	}
	return scanTransaction(rows)
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transacciones (descripcion, monto_centavos, tipo, categoria_id, fecha)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Description, t.Amount.Cents, string(t.Kind), t.CategoryID, t.Date.String())
	if err != nil {
		return 0, wrapSQLError("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert transaction id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transacciones
		 SET descripcion = ?, monto_centavos = ?, tipo = ?, categoria_id = ?, fecha = ?,
		     updated_at = datetime('now')
		 WHERE id = ?`,
		t.Description, t.Amount.Cents, string(t.Kind), t.CategoryID, t.Date.String(), id)
	if err != nil {
		return wrapSQLError("update transaction", err)
	}
	return requireAffected(res, "update transaction")
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transacciones WHERE id = ?`, id)
	if err != nil {
		return wrapSQLError("delete transaction", err)
	}
	return requireAffected(res, "delete transaction")
}

// --- Summaries ---

type CategorySummaryRow struct {
	Name  string
	Color string
	Kind  core.Kind
	Total core.Money
	Count int64
}

type MonthlySummaryRow struct {
	Month int
	Year  int
	Kind  core.Kind
	Total core.Money
}

func (r *SQLiteRepository) SummarizeByCategory(ctx context.Context, from, to core.Date) ([]CategorySummaryRow, error) {
	query := `
		SELECT c.nombre, c.color, t.tipo, SUM(t.monto_centavos) AS total, COUNT(t.id) AS cantidad
		FROM transacciones t
		JOIN categorias c ON t.categoria_id = c.id
		WHERE 1=1`
	var args []any
	if !from.IsZero() {
		query += ` AND t.fecha >= ?`
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += ` AND t.fecha <= ?`
		args = append(args, to.String())
	}
	query += ` GROUP BY c.id, c.nombre, c.color, t.tipo ORDER BY total DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize by category: %w", err)
	}
	defer rows.Close()

	var out []CategorySummaryRow
	for rows.Next() {
		var row CategorySummaryRow
		if err := rows.Scan(&row.Name, &row.Color, &row.Kind, &row.Total.Cents, &row.Count); err != nil {
			return nil, fmt.Errorf("scan category summary: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SummarizeByMonth(ctx context.Context, year int) ([]MonthlySummaryRow, error) {
	query := `
		SELECT CAST(strftime('%m', fecha) AS INTEGER) AS mes,
		       CAST(strftime('%Y', fecha) AS INTEGER) AS ano,
		       tipo, SUM(monto_centavos) AS total
		FROM transacciones
		WHERE 1=1`
	var args []any
	if year > 0 {
		query += ` AND strftime('%Y', fecha) = ?`
		args = append(args, fmt.Sprintf("%04d", year))
	}
	query += ` GROUP BY ano, mes, tipo ORDER BY ano DESC, mes DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize by month: %w", err)
	}
	defer rows.Close()

	var out []MonthlySummaryRow
	for rows.Next() {
		var row MonthlySummaryRow
		if err := rows.Scan(&row.Month, &row.Year, &row.Kind, &row.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly summary: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// --- Recurring templates ---

// RecurringTemplateRow is a template joined with its category's display data.
type RecurringTemplateRow struct {
	core.RecurringTemplate
	CategoryName  string
	CategoryColor string
}

func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context) ([]RecurringTemplateRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT gr.id, gr.descripcion, gr.monto_centavos, gr.tipo, gr.categoria_id,
		       gr.dia_mes, gr.activo, gr.ultimo_procesado, gr.created_at, gr.updated_at,
		       c.nombre, c.color
		FROM gastos_recurrentes gr
		JOIN categorias c ON gr.categoria_id = c.id
		ORDER BY gr.activo DESC, gr.dia_mes ASC`)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []RecurringTemplateRow
	for rows.Next() {
		var (
			row              RecurringTemplateRow
			activo           int
			lastProcessed    sql.NullString
			created, updated string
		)
		if err := rows.Scan(&row.ID, &row.Description, &row.Amount.Cents, &row.Kind,
			&row.CategoryID, &row.DayOfMonth, &activo, &lastProcessed, &created, &updated,
			&row.CategoryName, &row.CategoryColor); err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		row.Active = activo != 0
		if lastProcessed.Valid && lastProcessed.String != "" {
			d, err := core.ParseDate(lastProcessed.String)
			if err != nil {
				return nil, fmt.Errorf("scan ultimo_procesado: %w", err)
			}
			row.LastProcessed = d
		}
		row.CreatedAt = parseTimestamp(created)
		row.UpdatedAt = parseTimestamp(updated)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRecurringTemplate(ctx context.Context, rt core.RecurringTemplate) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO gastos_recurrentes (descripcion, monto_centavos, tipo, categoria_id, dia_mes, activo)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rt.Description, rt.Amount.Cents, string(rt.Kind), rt.CategoryID, rt.DayOfMonth, boolToInt(rt.Active))
	if err != nil {
		return 0, wrapSQLError("create recurring template", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create recurring template id: %w", err)
	}
	slog.InfoContext(ctx, "Recurring template created",
		"id", id, "descripcion", rt.Description, "dia_mes", rt.DayOfMonth)
	return id, nil
}

func (r *SQLiteRepository) UpdateRecurringTemplate(ctx context.Context, id int64, rt core.RecurringTemplate) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE gastos_recurrentes
		 SET descripcion = ?, monto_centavos = ?, tipo = ?, categoria_id = ?, dia_mes = ?, activo = ?,
		     updated_at = datetime('now')
		 WHERE id = ?`,
		rt.Description, rt.Amount.Cents, string(rt.Kind), rt.CategoryID, rt.DayOfMonth, boolToInt(rt.Active), id)
	if err != nil {
		return wrapSQLError("update recurring template", err)
	}
	return requireAffected(res, "update recurring template")
}

func (r *SQLiteRepository) DeleteRecurringTemplate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gastos_recurrentes WHERE id = ?`, id)
	if err != nil {
		return wrapSQLError("delete recurring template", err)
	}
	return requireAffected(res, "delete recurring template")
}

// ListActiveRecurringTemplates returns every active template. The processor
// re-reads this on each pass; nothing is cached between passes.
func (r *SQLiteRepository) ListActiveRecurringTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, descripcion, monto_centavos, tipo, categoria_id,
		       dia_mes, activo, ultimo_procesado, created_at, updated_at
		FROM gastos_recurrentes
		WHERE activo = 1`)
	if err != nil {
		return nil, fmt.Errorf("list active recurring templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		rt, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// MaterializeTransaction inserts the generated transaction and stamps the
// template's ultimo_procesado in one database transaction. The stamp is a
// conditional claim: it only succeeds while the template is active and has
// not been processed this month, so two concurrent passes cannot both win.
// Returns claimed=false when the claim finds no eligible row.
func (r *SQLiteRepository) MaterializeTransaction(ctx context.Context, templateID int64, t core.Transaction) (int64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin materialize: %w", err)
	}
	defer tx.Rollback()

	monthStart := core.NewDate(t.Date.Year(), int(t.Date.Month()), 1)
	res, err := tx.ExecContext(ctx,
		`UPDATE gastos_recurrentes
		 SET ultimo_procesado = ?, updated_at = datetime('now')
		 WHERE id = ? AND activo = 1
		   AND (ultimo_procesado IS NULL OR ultimo_procesado < ?)`,
		t.Date.String(), templateID, monthStart.String())
	if err != nil {
		return 0, false, wrapSQLError("claim recurring template", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}

	ins, err := tx.ExecContext(ctx,
		`INSERT INTO transacciones (descripcion, monto_centavos, tipo, categoria_id, fecha)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Description, t.Amount.Cents, string(t.Kind), t.CategoryID, t.Date.String())
	if err != nil {
		// Rollback releases the claim, leaving the template eligible for
		// the next pass.
		return 0, false, wrapSQLError("materialize transaction", err)
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("materialize transaction id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit materialize: %w", err)
	}
	return id, true, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(rows rowScanner) (TransactionRow, error) {
	var (
		row                TransactionRow
		fecha              string
		created, updated   string
	)
	if err := rows.Scan(&row.ID, &row.Description, &row.Amount.Cents, &row.Kind,
		&row.CategoryID, &fecha, &created, &updated, &row.CategoryName, &row.CategoryColor); err != nil {
		return TransactionRow{}, fmt.Errorf("scan transaction: %w", err)
	}
	d, err := core.ParseDate(fecha)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("scan transaction date: %w", err)
	}
	row.Date = d
	row.CreatedAt = parseTimestamp(created)
	row.UpdatedAt = parseTimestamp(updated)
	return row, nil
}

func scanTemplate(rows rowScanner) (core.RecurringTemplate, error) {
	var (
		rt               core.RecurringTemplate
		activo           int
		lastProcessed    sql.NullString
		created, updated string
	)
	if err := rows.Scan(&rt.ID, &rt.Description, &rt.Amount.Cents, &rt.Kind, &rt.CategoryID,
		&rt.DayOfMonth, &activo, &lastProcessed, &created, &updated); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("scan recurring template: %w", err)
	}
	rt.Active = activo != 0
	if lastProcessed.Valid && lastProcessed.String != "" {
		d, err := core.ParseDate(lastProcessed.String)
		if err != nil {
			return core.RecurringTemplate{}, fmt.Errorf("scan ultimo_procesado: %w", err)
		}
		rt.LastProcessed = d
	}
	rt.CreatedAt = parseTimestamp(created)
	rt.UpdatedAt = parseTimestamp(updated)
	return rt, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func wrapSQLError(op string, err error) error {
	if isConstraintError(err) {
		return fmt.Errorf("%s: %w", op, ErrConstraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConstraintError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "constraint")
}
