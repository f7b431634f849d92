// Package export defines the spreadsheet export contract the worker writes
// through. The Google Sheets implementation lives in the sheets subpackage;
// tests substitute an in-memory appender.
package export

import "context"

// Row is one spreadsheet line for an exported transaction.
type Row struct {
	Date        string
	Description string
	Kind        string
	Category    string
	Amount      string
	Source      string
}

// RowAppender appends a row to the export target.
type RowAppender interface {
	AppendRow(ctx context.Context, row Row) error
}
