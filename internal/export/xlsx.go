// Package export renders the expense list and the monthly chart series as an
// XLSX workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"expenseview/internal/core"
	"expenseview/internal/log"
)

const (
	ExpensesSheet = "Expenses"
	SummarySheet  = "Summary"

	// ContentType is the MIME type of the produced workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxDescription = 140
)

var expenseHeaders = []string{"ID", "Date", "Category", "Price", "Description"}

// Service produces XLSX bytes for exports.
type Service struct {
	logger *log.Logger
}

func NewService(logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{logger: logger.WithComponent(log.ComponentExport)}
}

// Workbook is what gets exported. Rows are written in the given order, so
// pass the list already sorted.
type Workbook struct {
	Expenses []core.Expense
	Totals   []core.CategoryTotal
	Month    string
}

// WriteXLSX writes wb to w. Absent prices and dates become empty cells.
func (s *Service) WriteXLSX(ctx context.Context, wb Workbook, w io.Writer) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// The default sheet is renamed rather than left empty.
	if err := f.SetSheetName(f.GetSheetName(0), ExpensesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeExpenses(ctx, f, wb.Expenses, money, bold); err != nil {
		return err
	}
	if err := writeSummary(f, wb, money, bold); err != nil {
		return err
	}

	if index, err := f.GetSheetIndex(ExpensesSheet); err == nil {
		f.SetActiveSheet(index)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.InfoContext(ctx, "Exported expenses",
		log.FieldOperation, log.OpExport,
		"rows", len(wb.Expenses),
		"categories", len(wb.Totals),
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func writeExpenses(ctx context.Context, f *excelize.File, items []core.Expense, money, bold int) error {
	for i, h := range expenseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ExpensesSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(ExpensesSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, e := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := i + 2
		values := []any{e.ID, "", e.Category, "", truncate(e.Description, maxDescription)}
		if !e.Date.IsZero() {
			values[1] = e.Date.String()
		}
		if e.Price.Valid {
			values[3] = e.Price.Decimal.InexactFloat64()
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(ExpensesSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	if len(items) > 0 {
		last := fmt.Sprintf("D%d", len(items)+1)
		if err := f.SetCellStyle(ExpensesSheet, "D2", last, money); err != nil {
			return fmt.Errorf("style prices: %w", err)
		}
	}

	_ = f.SetColWidth(ExpensesSheet, "A", "A", 8)
	_ = f.SetColWidth(ExpensesSheet, "B", "B", 14)
	_ = f.SetColWidth(ExpensesSheet, "C", "C", 22)
	_ = f.SetColWidth(ExpensesSheet, "D", "D", 12)
	_ = f.SetColWidth(ExpensesSheet, "E", "E", 48)
	return nil
}

func writeSummary(f *excelize.File, wb Workbook, money, bold int) error {
	title := "Category"
	if wb.Month != "" {
		title = "Category (" + wb.Month + ")"
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{title, "Total"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", bold); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}

	total := 0.0
	for i, t := range wb.Totals {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		v := t.Value.InexactFloat64()
		total += v
		if err := f.SetSheetRow(SummarySheet, cell, &[]any{t.Label, v}); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	footer := len(wb.Totals) + 2
	cell, _ := excelize.CoordinatesToCellName(1, footer)
	if err := f.SetSheetRow(SummarySheet, cell, &[]any{"Total", total}); err != nil {
		return fmt.Errorf("write summary total: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "B2", fmt.Sprintf("B%d", footer), money); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 28)
	_ = f.SetColWidth(SummarySheet, "B", "B", 12)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
