package http

import (
	"time"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// Wire types keep the Spanish field names the dashboard already speaks.

type categoryPayload struct {
	Nombre string    `json:"nombre"`
	Tipo   core.Kind `json:"tipo"`
	Color  string    `json:"color"`
}

func (p categoryPayload) toCore() core.Category {
	return core.Category{
		Name:  sanitizeInput(p.Nombre),
		Kind:  p.Tipo,
		Color: sanitizeInput(p.Color),
	}
}

type categoryResponse struct {
	ID        int64     `json:"id"`
	Nombre    string    `json:"nombre"`
	Tipo      core.Kind `json:"tipo"`
	Color     string    `json:"color"`
	CreatedAt string    `json:"created_at"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Nombre:    c.Name,
		Tipo:      c.Kind,
		Color:     c.Color,
		CreatedAt: formatTimestamp(c.CreatedAt),
	}
}

type transactionPayload struct {
	Descripcion string     `json:"descripcion"`
	Monto       core.Money `json:"monto"`
	Tipo        core.Kind  `json:"tipo"`
	CategoriaID int64      `json:"categoria_id"`
	Fecha       core.Date  `json:"fecha"`
}

func (p transactionPayload) toCore() core.Transaction {
	return core.Transaction{
		Description: sanitizeInput(p.Descripcion),
		Amount:      p.Monto,
		Kind:        p.Tipo,
		CategoryID:  p.CategoriaID,
		Date:        p.Fecha,
	}
}

type transactionResponse struct {
	ID              int64      `json:"id"`
	Descripcion     string     `json:"descripcion"`
	Monto           core.Money `json:"monto"`
	Tipo            core.Kind  `json:"tipo"`
	CategoriaID     int64      `json:"categoria_id"`
	Fecha           core.Date  `json:"fecha"`
	CategoriaNombre string     `json:"categoria_nombre"`
	CategoriaColor  string     `json:"categoria_color"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

func toTransactionResponse(row storage.TransactionRow) transactionResponse {
	return transactionResponse{
		ID:              row.ID,
		Descripcion:     row.Description,
		Monto:           row.Amount,
		Tipo:            row.Kind,
		CategoriaID:     row.CategoryID,
		Fecha:           row.Date,
		CategoriaNombre: row.CategoryName,
		CategoriaColor:  row.CategoryColor,
		CreatedAt:       formatTimestamp(row.CreatedAt),
		UpdatedAt:       formatTimestamp(row.UpdatedAt),
	}
}

type recurringPayload struct {
	Descripcion string     `json:"descripcion"`
	Monto       core.Money `json:"monto"`
	Tipo        core.Kind  `json:"tipo"`
	CategoriaID int64      `json:"categoria_id"`
	DiaMes      int        `json:"dia_mes"`
	Activo      bool       `json:"activo"`
}

func (p recurringPayload) toCore() core.RecurringTemplate {
	return core.RecurringTemplate{
		Description: sanitizeInput(p.Descripcion),
		Amount:      p.Monto,
		Kind:        p.Tipo,
		CategoryID:  p.CategoriaID,
		DayOfMonth:  p.DiaMes,
		Active:      p.Activo,
	}
}

type recurringResponse struct {
	ID               int64      `json:"id"`
	Descripcion      string     `json:"descripcion"`
	Monto            core.Money `json:"monto"`
	Tipo             core.Kind  `json:"tipo"`
	CategoriaID      int64      `json:"categoria_id"`
	DiaMes           int        `json:"dia_mes"`
	Activo           bool       `json:"activo"`
	UltimoProcesado  core.Date  `json:"ultimo_procesado"`
	CategoriaNombre  string     `json:"categoria_nombre"`
	CategoriaColor   string     `json:"categoria_color"`
	CreatedAt        string     `json:"created_at"`
	UpdatedAt        string     `json:"updated_at"`
}

func toRecurringResponse(row storage.RecurringTemplateRow) recurringResponse {
	return recurringResponse{
		ID:              row.ID,
		Descripcion:     row.Description,
		Monto:           row.Amount,
		Tipo:            row.Kind,
		CategoriaID:     row.CategoryID,
		DiaMes:          row.DayOfMonth,
		Activo:          row.Active,
		UltimoProcesado: row.LastProcessed,
		CategoriaNombre: row.CategoryName,
		CategoriaColor:  row.CategoryColor,
		CreatedAt:       formatTimestamp(row.CreatedAt),
		UpdatedAt:       formatTimestamp(row.UpdatedAt),
	}
}

type categorySummaryResponse struct {
	Categoria string     `json:"categoria"`
	Color     string     `json:"color"`
	Tipo      core.Kind  `json:"tipo"`
	Total     core.Money `json:"total"`
	Cantidad  int64      `json:"cantidad"`
}

func toCategorySummaryResponse(row storage.CategorySummaryRow) categorySummaryResponse {
	return categorySummaryResponse{
		Categoria: row.Name,
		Color:     row.Color,
		Tipo:      row.Kind,
		Total:     row.Total,
		Cantidad:  row.Count,
	}
}

type monthlySummaryResponse struct {
	Mes   int        `json:"mes"`
	Anio  int        `json:"anio"`
	Tipo  core.Kind  `json:"tipo"`
	Total core.Money `json:"total"`
}

func toMonthlySummaryResponse(row storage.MonthlySummaryRow) monthlySummaryResponse {
	return monthlySummaryResponse{
		Mes:   row.Month,
		Anio:  row.Year,
		Tipo:  row.Kind,
		Total: row.Total,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
