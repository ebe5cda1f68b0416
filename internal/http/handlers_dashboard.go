package http

import (
	"context"
	"net/http"

	"expenseview/internal/core"
	"expenseview/internal/view"
)

type summaryResponse struct {
	Month     string `json:"month"`
	Total     string `json:"total"`
	Formatted string `json:"formatted"`
}

type statusResponse struct {
	Visible bool      `json:"visible"`
	Kind    view.Kind `json:"kind,omitempty"`
	Text    string    `json:"text,omitempty"`
}

func (s *Server) handleRefreshChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), remoteTimeout)
	defer cancel()
	if _, err := s.dashboard.Refresh(ctx); err != nil {
		s.writeViewError(w, r, err, "Error refreshing the chart.")
		return
	}
	NewJSONResponse().
		Event(EventChartRefreshed, nil).
		Body(s.dashboard.Chart()).
		Write(w)
}

// handleGetChart returns the last published series without fetching.
func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.dashboard.Chart()).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), remoteTimeout)
	defer cancel()
	total, err := s.dashboard.CurrentMonthTotal(ctx)
	if err != nil {
		s.writeViewError(w, r, err, "")
		return
	}
	NewJSONResponse().Body(summaryResponse{
		Month:     s.dashboard.CurrentMonthName(),
		Total:     total.StringFixed(2),
		Formatted: core.FormatEuro(total),
	}).Write(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	if s.status != nil {
		if msg, ok := s.status.Current(); ok {
			resp = statusResponse{Visible: true, Kind: msg.Kind, Text: msg.Text}
		}
	}
	NewJSONResponse().Body(resp).Write(w)
}
