// Package http exposes the REST API the dashboard consumes, plus the
// manual trigger for the recurring-expense pass.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// Store covers the repository operations the handlers reach directly.
// Transactions go through the Transactions service so inserts publish
// export events.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	UpdateCategory(ctx context.Context, id int64, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	SummarizeByCategory(ctx context.Context, from, to core.Date) ([]storage.CategorySummaryRow, error)
	SummarizeByMonth(ctx context.Context, year int) ([]storage.MonthlySummaryRow, error)

	ListRecurringTemplates(ctx context.Context) ([]storage.RecurringTemplateRow, error)
	CreateRecurringTemplate(ctx context.Context, rt core.RecurringTemplate) (int64, error)
	UpdateRecurringTemplate(ctx context.Context, id int64, rt core.RecurringTemplate) error
	DeleteRecurringTemplate(ctx context.Context, id int64) error
}

// Transactions is the transaction service surface the handlers call.
type Transactions interface {
	List(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRow, error)
	Get(ctx context.Context, id int64) (storage.TransactionRow, error)
	Create(ctx context.Context, t core.Transaction) (storage.TransactionRow, error)
	Update(ctx context.Context, id int64, t core.Transaction) (storage.TransactionRow, error)
	Delete(ctx context.Context, id int64) error
}

// PassTrigger fires a recurring pass without waiting for it.
type PassTrigger interface {
	RunNow()
}

type Server struct {
	http.Server

	store         Store
	transactions  Transactions
	trigger       PassTrigger
	logger        *log.Logger
	allowedOrigin string
	rateLimiter   *rateLimiter

	// Summary responses are cheap to recompute but hit on every dashboard
	// refresh; a short TTL plus invalidation on writes keeps them fresh.
	categorySummaryCache *cache.Cache[[]storage.CategorySummaryRow]
	monthlySummaryCache  *cache.Cache[[]storage.MonthlySummaryRow]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr, allowedOrigin string, store Store, transactions Transactions, trigger PassTrigger, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:                store,
		transactions:         transactions,
		trigger:              trigger,
		logger:               logger.WithComponent(log.ComponentAPI),
		allowedOrigin:        allowedOrigin,
		rateLimiter:          newRateLimiter(),
		categorySummaryCache: cache.New[[]storage.CategorySummaryRow](64, 5*time.Minute),
		monthlySummaryCache:  cache.New[[]storage.MonthlySummaryRow](16, 5*time.Minute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/categorias", s.wrap(s.handleListCategories))
	mux.HandleFunc("POST /api/categorias", s.wrap(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categorias/{id}", s.wrap(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categorias/{id}", s.wrap(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transacciones", s.wrap(s.handleListTransactions))
	mux.HandleFunc("GET /api/transacciones/{id}", s.wrap(s.handleGetTransaction))
	mux.HandleFunc("POST /api/transacciones", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transacciones/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transacciones/{id}", s.wrap(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/resumen/categorias", s.wrap(s.handleCategorySummary))
	mux.HandleFunc("GET /api/resumen/mensual", s.wrap(s.handleMonthlySummary))

	mux.HandleFunc("GET /api/gastos-recurrentes", s.wrap(s.handleListRecurring))
	mux.HandleFunc("POST /api/gastos-recurrentes", s.wrap(s.handleCreateRecurring))
	mux.HandleFunc("PUT /api/gastos-recurrentes/{id}", s.wrap(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/gastos-recurrentes/{id}", s.wrap(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/gastos-recurrentes/procesar", s.wrap(s.handleProcessRecurring))

	// Preflight for the dashboard's cross-origin calls.
	mux.HandleFunc("OPTIONS /api/", s.wrap(func(w http.ResponseWriter, r *http.Request) {}))

	return s
}

// Shutdown stops the background cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// InvalidateSummaries drops cached aggregates after any write that can
// change them. The recurring processor calls it too, since materialized
// transactions move the totals without going through a handler.
func (s *Server) InvalidateSummaries() {
	s.categorySummaryCache.Clear()
	s.monthlySummaryCache.Clear()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
