package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func validTemplate() RecurringTemplate {
	return RecurringTemplate{
		Description: "Alquiler",
		Amount:      Money{Cents: 50000},
		Kind:        Expense,
		CategoryID:  9,
		DayOfMonth:  5,
		Active:      true,
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RecurringTemplate)
		wantErr error
	}{
		{"valid", func(rt *RecurringTemplate) {}, nil},
		{"day 1 is valid", func(rt *RecurringTemplate) { rt.DayOfMonth = 1 }, nil},
		{"day 28 is valid", func(rt *RecurringTemplate) { rt.DayOfMonth = 28 }, nil},
		{"day 0 rejected", func(rt *RecurringTemplate) { rt.DayOfMonth = 0 }, ErrInvalidDayOfMonth},
		{"day 29 rejected", func(rt *RecurringTemplate) { rt.DayOfMonth = 29 }, ErrInvalidDayOfMonth},
		{"day 31 rejected", func(rt *RecurringTemplate) { rt.DayOfMonth = 31 }, ErrInvalidDayOfMonth},
		{"empty description", func(rt *RecurringTemplate) { rt.Description = "   " }, ErrEmptyDescription},
		{"long description", func(rt *RecurringTemplate) { rt.Description = strings.Repeat("x", 256) }, ErrDescriptionTooLong},
		{"zero amount", func(rt *RecurringTemplate) { rt.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(rt *RecurringTemplate) { rt.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"bad kind", func(rt *RecurringTemplate) { rt.Kind = "gasto" }, ErrInvalidKind},
		{"missing category", func(rt *RecurringTemplate) { rt.CategoryID = 0 }, ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := validTemplate()
			tt.mutate(&rt)
			if err := rt.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Description: "Supermercado",
		Amount:      Money{Cents: 1250},
		Kind:        Expense,
		CategoryID:  4,
		Date:        NewDate(2024, 5, 5),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	noDate := valid
	noDate.Date = Date{}
	if err := noDate.Validate(); err == nil {
		t.Error("zero date should be rejected")
	}

	badKind := valid
	badKind.Kind = "other"
	if err := badKind.Validate(); err != ErrInvalidKind {
		t.Errorf("bad kind error = %v, want %v", err, ErrInvalidKind)
	}
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		wantErr bool
	}{
		{"valid", Category{Name: "Alimentos", Kind: Expense, Color: "#e74c3c"}, false},
		{"no color is fine", Category{Name: "Salario", Kind: Income}, false},
		{"empty name", Category{Name: "", Kind: Income}, true},
		{"bad kind", Category{Name: "Otro", Kind: "neutral"}, true},
		{"short color", Category{Name: "Otro", Kind: Expense, Color: "#fff"}, true},
		{"non-hex color", Category{Name: "Otro", Kind: Expense, Color: "#zzzzzz"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cat.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 5, 5)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-05-05"` {
		t.Errorf("marshal = %s, want \"2024-05-05\"", b)
	}

	var zero Date
	b, err = json.Marshal(zero)
	if err != nil {
		t.Fatalf("marshal zero: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("zero date marshal = %s, want null", b)
	}

	var back Date
	if err := json.Unmarshal([]byte(`"2024-06-05"`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Year() != 2024 || int(back.Month()) != 6 || back.Day() != 5 {
		t.Errorf("unmarshal = %s", back)
	}

	var null Date
	if err := json.Unmarshal([]byte("null"), &null); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !null.IsZero() {
		t.Error("null should unmarshal to zero date")
	}
}
