package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gastos/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "gastos_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func findCategory(t *testing.T, repo *SQLiteRepository, name string) core.Category {
	t.Helper()
	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return core.Category{}
}

func TestMigrationsSeedDefaultCategories(t *testing.T) {
	repo := newTestRepo(t)

	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 10 {
		t.Fatalf("seeded categories = %d, want 10", len(cats))
	}

	salario := findCategory(t, repo, "Salario")
	if salario.Kind != core.Income || salario.Color != "#27ae60" {
		t.Errorf("Salario = %+v, want ingreso/#27ae60", salario)
	}
}

func TestCategoryCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateCategory(ctx, core.Category{Name: "Mascotas", Kind: core.Expense, Color: "#1abc9c"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateCategory returned zero id")
	}

	// Unique nombre
	if _, err := repo.CreateCategory(ctx, core.Category{Name: "Mascotas", Kind: core.Expense}); !errors.Is(err, ErrConstraint) {
		t.Errorf("duplicate category error = %v, want ErrConstraint", err)
	}

	if err := repo.UpdateCategory(ctx, id, core.Category{Name: "Mascotas y más", Kind: core.Expense, Color: "#1abc9c"}); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if err := repo.UpdateCategory(ctx, 99999, core.Category{Name: "Nada", Kind: core.Expense, Color: "#000000"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing category error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteCategory(ctx, id); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := repo.DeleteCategory(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing category error = %v, want ErrNotFound", err)
	}
}

func TestDeleteReferencedCategoryFails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat := findCategory(t, repo, "Servicios")
	_, err := repo.InsertTransaction(ctx, core.Transaction{
		Description: "Luz",
		Amount:      core.Money{Cents: 4200},
		Kind:        core.Expense,
		CategoryID:  cat.ID,
		Date:        core.NewDate(2024, 5, 5),
	})
	if err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}

	if err := repo.DeleteCategory(ctx, cat.ID); !errors.Is(err, ErrConstraint) {
		t.Errorf("deleting referenced category error = %v, want ErrConstraint", err)
	}
}

func TestTransactionCRUDAndFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	servicios := findCategory(t, repo, "Servicios")
	salario := findCategory(t, repo, "Salario")

	mustInsert := func(desc string, cents int64, kind core.Kind, catID int64, date core.Date) int64 {
		t.Helper()
		id, err := repo.InsertTransaction(ctx, core.Transaction{
			Description: desc, Amount: core.Money{Cents: cents}, Kind: kind, CategoryID: catID, Date: date,
		})
		if err != nil {
			t.Fatalf("InsertTransaction(%s): %v", desc, err)
		}
		return id
	}

	luzID := mustInsert("Luz", 4200, core.Expense, servicios.ID, core.NewDate(2024, 5, 3))
	mustInsert("Sueldo", 150000, core.Income, salario.ID, core.NewDate(2024, 5, 1))
	mustInsert("Gas", 2800, core.Expense, servicios.ID, core.NewDate(2024, 4, 20))

	all, err := repo.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListTransactions = %d rows, want 3", len(all))
	}
	// Ordered fecha DESC
	if all[0].Description != "Luz" || all[2].Description != "Gas" {
		t.Errorf("unexpected order: %s ... %s", all[0].Description, all[2].Description)
	}
	if all[0].CategoryName != "Servicios" || all[0].CategoryColor != "#34495e" {
		t.Errorf("joined category data = %s/%s", all[0].CategoryName, all[0].CategoryColor)
	}

	mayOnly, err := repo.ListTransactions(ctx, TransactionFilter{
		From: core.NewDate(2024, 5, 1),
		To:   core.NewDate(2024, 5, 31),
	})
	if err != nil {
		t.Fatalf("ListTransactions(may): %v", err)
	}
	if len(mayOnly) != 2 {
		t.Errorf("may filter = %d rows, want 2", len(mayOnly))
	}

	expensesOnly, err := repo.ListTransactions(ctx, TransactionFilter{Kind: core.Expense})
	if err != nil {
		t.Fatalf("ListTransactions(egreso): %v", err)
	}
	if len(expensesOnly) != 2 {
		t.Errorf("egreso filter = %d rows, want 2", len(expensesOnly))
	}

	got, err := repo.GetTransaction(ctx, luzID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Description != "Luz" || got.Amount.Cents != 4200 {
		t.Errorf("GetTransaction = %+v", got)
	}
	if _, err := repo.GetTransaction(ctx, 99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction missing error = %v, want ErrNotFound", err)
	}

	if err := repo.UpdateTransaction(ctx, luzID, core.Transaction{
		Description: "Luz y agua", Amount: core.Money{Cents: 5100}, Kind: core.Expense,
		CategoryID: servicios.ID, Date: core.NewDate(2024, 5, 4),
	}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, err = repo.GetTransaction(ctx, luzID)
	if err != nil {
		t.Fatalf("GetTransaction after update: %v", err)
	}
	if got.Description != "Luz y agua" || got.Amount.Cents != 5100 {
		t.Errorf("updated transaction = %+v", got)
	}

	if err := repo.DeleteTransaction(ctx, luzID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, luzID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing transaction error = %v, want ErrNotFound", err)
	}
}

func TestSummaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	servicios := findCategory(t, repo, "Servicios")
	salario := findCategory(t, repo, "Salario")

	insert := func(desc string, cents int64, kind core.Kind, catID int64, date core.Date) {
		t.Helper()
		if _, err := repo.InsertTransaction(ctx, core.Transaction{
			Description: desc, Amount: core.Money{Cents: cents}, Kind: kind, CategoryID: catID, Date: date,
		}); err != nil {
			t.Fatalf("InsertTransaction(%s): %v", desc, err)
		}
	}

	insert("Luz", 4200, core.Expense, servicios.ID, core.NewDate(2024, 5, 3))
	insert("Gas", 2800, core.Expense, servicios.ID, core.NewDate(2024, 5, 10))
	insert("Sueldo", 150000, core.Income, salario.ID, core.NewDate(2024, 5, 1))
	insert("Sueldo", 150000, core.Income, salario.ID, core.NewDate(2023, 5, 1))

	byCat, err := repo.SummarizeByCategory(ctx, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	if err != nil {
		t.Fatalf("SummarizeByCategory: %v", err)
	}
	if len(byCat) != 2 {
		t.Fatalf("category summary rows = %d, want 2", len(byCat))
	}
	// Ordered by total DESC: Salario first
	if byCat[0].Name != "Salario" || byCat[0].Total.Cents != 150000 || byCat[0].Count != 1 {
		t.Errorf("top summary row = %+v", byCat[0])
	}
	if byCat[1].Name != "Servicios" || byCat[1].Total.Cents != 7000 || byCat[1].Count != 2 {
		t.Errorf("second summary row = %+v", byCat[1])
	}

	byMonth, err := repo.SummarizeByMonth(ctx, 2024)
	if err != nil {
		t.Fatalf("SummarizeByMonth: %v", err)
	}
	if len(byMonth) != 2 {
		t.Fatalf("monthly summary rows = %d, want 2", len(byMonth))
	}
	for _, row := range byMonth {
		if row.Year != 2024 || row.Month != 5 {
			t.Errorf("monthly row outside filter: %+v", row)
		}
	}
}

func TestRecurringTemplateCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	servicios := findCategory(t, repo, "Servicios")

	id, err := repo.CreateRecurringTemplate(ctx, core.RecurringTemplate{
		Description: "Alquiler",
		Amount:      core.Money{Cents: 50000},
		Kind:        core.Expense,
		CategoryID:  servicios.ID,
		DayOfMonth:  5,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("CreateRecurringTemplate: %v", err)
	}

	// dia_mes CHECK constraint is enforced at the storage layer too
	if _, err := repo.CreateRecurringTemplate(ctx, core.RecurringTemplate{
		Description: "Inválido", Amount: core.Money{Cents: 100}, Kind: core.Expense,
		CategoryID: servicios.ID, DayOfMonth: 29, Active: true,
	}); !errors.Is(err, ErrConstraint) {
		t.Errorf("dia_mes 29 error = %v, want ErrConstraint", err)
	}

	templates, err := repo.ListRecurringTemplates(ctx)
	if err != nil {
		t.Fatalf("ListRecurringTemplates: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("templates = %d, want 1", len(templates))
	}
	got := templates[0]
	if got.ID != id || got.Description != "Alquiler" || !got.Active || !got.LastProcessed.IsZero() {
		t.Errorf("listed template = %+v", got)
	}
	if got.CategoryName != "Servicios" {
		t.Errorf("joined category = %q", got.CategoryName)
	}

	if err := repo.UpdateRecurringTemplate(ctx, id, core.RecurringTemplate{
		Description: "Alquiler depto", Amount: core.Money{Cents: 52000}, Kind: core.Expense,
		CategoryID: servicios.ID, DayOfMonth: 7, Active: false,
	}); err != nil {
		t.Fatalf("UpdateRecurringTemplate: %v", err)
	}

	active, err := repo.ListActiveRecurringTemplates(ctx)
	if err != nil {
		t.Fatalf("ListActiveRecurringTemplates: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active templates after deactivation = %d, want 0", len(active))
	}

	if err := repo.DeleteRecurringTemplate(ctx, id); err != nil {
		t.Fatalf("DeleteRecurringTemplate: %v", err)
	}
	if err := repo.DeleteRecurringTemplate(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing template error = %v, want ErrNotFound", err)
	}
}

func TestMaterializeTransactionClaims(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	servicios := findCategory(t, repo, "Servicios")
	tplID, err := repo.CreateRecurringTemplate(ctx, core.RecurringTemplate{
		Description: "Alquiler", Amount: core.Money{Cents: 50000}, Kind: core.Expense,
		CategoryID: servicios.ID, DayOfMonth: 5, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateRecurringTemplate: %v", err)
	}

	generated := core.Transaction{
		Description: "Alquiler" + core.AutomaticSuffix,
		Amount:      core.Money{Cents: 50000},
		Kind:        core.Expense,
		CategoryID:  servicios.ID,
		Date:        core.NewDate(2024, 5, 5),
	}

	txID, claimed, err := repo.MaterializeTransaction(ctx, tplID, generated)
	if err != nil {
		t.Fatalf("MaterializeTransaction: %v", err)
	}
	if !claimed || txID == 0 {
		t.Fatalf("first materialization claimed=%v id=%d", claimed, txID)
	}

	// Second attempt inside the same month must not claim.
	later := generated
	later.Date = core.NewDate(2024, 5, 20)
	_, claimed, err = repo.MaterializeTransaction(ctx, tplID, later)
	if err != nil {
		t.Fatalf("MaterializeTransaction(second): %v", err)
	}
	if claimed {
		t.Error("second materialization within the month should not claim")
	}

	rows, err := repo.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("transactions after double materialize = %d, want 1", len(rows))
	}
	if rows[0].Description != "Alquiler (Automático)" {
		t.Errorf("materialized description = %q", rows[0].Description)
	}

	// Next month the claim succeeds again.
	june := generated
	june.Date = core.NewDate(2024, 6, 5)
	_, claimed, err = repo.MaterializeTransaction(ctx, tplID, june)
	if err != nil {
		t.Fatalf("MaterializeTransaction(june): %v", err)
	}
	if !claimed {
		t.Error("materialization in a new month should claim")
	}

	templates, err := repo.ListActiveRecurringTemplates(ctx)
	if err != nil {
		t.Fatalf("ListActiveRecurringTemplates: %v", err)
	}
	if len(templates) != 1 || templates[0].LastProcessed.String() != "2024-06-05" {
		t.Errorf("ultimo_procesado = %q, want 2024-06-05", templates[0].LastProcessed.String())
	}
}

func TestMaterializeTransactionRollsBackClaimOnInsertFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	servicios := findCategory(t, repo, "Servicios")
	tplID, err := repo.CreateRecurringTemplate(ctx, core.RecurringTemplate{
		Description: "Alquiler", Amount: core.Money{Cents: 50000}, Kind: core.Expense,
		CategoryID: servicios.ID, DayOfMonth: 5, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateRecurringTemplate: %v", err)
	}

	// Insert fails on the CHECK constraint; the claim must roll back.
	bad := core.Transaction{
		Description: "Alquiler" + core.AutomaticSuffix,
		Amount:      core.Money{Cents: -1},
		Kind:        core.Expense,
		CategoryID:  servicios.ID,
		Date:        core.NewDate(2024, 5, 5),
	}
	if _, _, err := repo.MaterializeTransaction(ctx, tplID, bad); !errors.Is(err, ErrConstraint) {
		t.Fatalf("bad insert error = %v, want ErrConstraint", err)
	}

	templates, err := repo.ListActiveRecurringTemplates(ctx)
	if err != nil {
		t.Fatalf("ListActiveRecurringTemplates: %v", err)
	}
	if !templates[0].LastProcessed.IsZero() {
		t.Error("failed insert should leave ultimo_procesado unset")
	}

	// Template remains eligible: a good retry claims normally.
	good := bad
	good.Amount = core.Money{Cents: 50000}
	_, claimed, err := repo.MaterializeTransaction(ctx, tplID, good)
	if err != nil {
		t.Fatalf("retry MaterializeTransaction: %v", err)
	}
	if !claimed {
		t.Error("retry after rollback should claim")
	}
}
