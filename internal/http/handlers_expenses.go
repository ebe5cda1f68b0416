package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"expenseview/internal/core"
	"expenseview/internal/export"
	"expenseview/internal/listing"
	"expenseview/internal/log"
	"expenseview/internal/session"
	"expenseview/internal/view"
)

// pageResponse is the visible window of the table plus its paging state.
type pageResponse struct {
	Items []core.Expense `json:"items"`
	view.PageInfo
}

type createExpenseRequest struct {
	Category    string              `json:"category"`
	Price       decimal.NullDecimal `json:"price"`
	Description string              `json:"description"`
	Date        core.Date           `json:"date"`
}

func (s *Server) currentPage() pageResponse {
	return pageResponse{Items: s.list.CurrentPageView(), PageInfo: s.list.Info()}
}

func (s *Server) handleLoadExpenses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), remoteTimeout)
	defer cancel()
	if err := s.list.Load(ctx); err != nil {
		s.writeViewError(w, r, err, "Error fetching expenses.")
		return
	}
	info := s.list.Info()
	NewJSONResponse().
		Event(EventListLoaded, map[string]int{"count": info.Count}).
		Body(s.currentPage()).
		Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.currentPage()).Write(w)
}

// handleSortExpenses applies a header click. Unknown columns are accepted
// and leave the order unchanged.
func (s *Server) handleSortExpenses(w http.ResponseWriter, r *http.Request) {
	col := listing.ParseColumn(r.URL.Query().Get("column"))
	if col == "" {
		BadRequestError(`missing "column" parameter`).Write(w)
		return
	}
	state := s.list.SortBy(col)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Sort applied",
		log.FieldOperation, log.OpSort, log.FieldColumn, state.String())
	NewJSONResponse().Body(s.currentPage()).Write(w)
}

func (s *Server) handleChangePage(w http.ResponseWriter, r *http.Request) {
	n, err := parseIntQuery(r, "n")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.list.ChangePage(n)
	NewJSONResponse().Body(s.currentPage()).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), remoteTimeout)
	defer cancel()
	if err := s.list.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, view.ErrMissingID) {
			BadRequestError("Expense ID is undefined or null").Write(w)
			return
		}
		s.writeViewError(w, r, err, "Error deleting expense. Please try again.")
		return
	}

	NewJSONResponse().
		Event(EventExpenseDeleted, map[string]int64{"id": id}).
		Body(s.currentPage()).
		Write(w)
}

// handleCreateExpense runs the add-expense form through the dashboard,
// which also refreshes the chart.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e := core.Expense{
		Category:    sanitizeInput(req.Category),
		Price:       req.Price,
		Description: sanitizeInput(req.Description),
		Date:        req.Date,
	}

	ctx, cancel := context.WithTimeout(r.Context(), remoteTimeout)
	defer cancel()
	saved, err := s.dashboard.AddExpense(ctx, e)
	if err != nil {
		if validationError(err) {
			UnprocessableEntityError(fmt.Sprintf("Please fill all required fields correctly: %v", err)).Write(w)
			return
		}
		s.writeViewError(w, r, err, "Error adding expense. Please try again.")
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Event(EventExpenseCreated, map[string]int64{"id": saved.ID}).
		Event(EventChartRefreshed, nil).
		Body(saved).
		Write(w)
}

// handleExportExpenses streams the ordered list and the chart series as a
// workbook. It is built in memory first so a failure still gets a JSON
// error.
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	if _, err := session.Require(s.session); err != nil {
		s.writeViewError(w, r, err, "")
		return
	}
	wb := export.Workbook{
		Expenses: s.list.Snapshot(),
		Totals:   s.dashboard.CurrentDataPoints(),
		Month:    s.dashboard.CurrentMonthName(),
	}

	var buf bytes.Buffer
	if err := s.exporter.WriteXLSX(r.Context(), wb, &buf); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldOperation, log.OpExport, log.FieldError, err)
		tracedError(r, http.StatusInternalServerError, "Export failed.").Write(w)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func validationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyCategory,
		core.ErrDescriptionTooLong,
		core.ErrInvalidDate,
		core.ErrInvalidDay,
		core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
