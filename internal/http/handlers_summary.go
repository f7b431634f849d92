package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "rango de fechas inválido")
		return
	}

	key := from.String() + "|" + to.String()
	rows, hit := s.categorySummaryCache.Get(key)
	if !hit {
		rows, err = s.store.SummarizeByCategory(r.Context(), from, to)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to summarize by category", "error", err)
			respondStoreError(w, err)
			return
		}
		s.categorySummaryCache.Set(key, rows)
	}

	out := make([]categorySummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategorySummaryResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("ano")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1970 || parsed > 9999 {
			respondError(w, http.StatusBadRequest, "ano inválido")
			return
		}
		year = parsed
	}

	key := strconv.Itoa(year)
	rows, hit := s.monthlySummaryCache.Get(key)
	if !hit {
		var err error
		rows, err = s.store.SummarizeByMonth(r.Context(), year)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to summarize by month",
				"ano", year,
				"error", err)
			respondStoreError(w, err)
			return
		}
		s.monthlySummaryCache.Set(key, rows)
	}

	out := make([]monthlySummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toMonthlySummaryResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}
