package http

import (
	"net/http"
	"strings"

	"gastos/internal/core"
	"gastos/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "rango de fechas inválido")
		return
	}

	filter := storage.TransactionFilter{From: from, To: to}
	if v := strings.TrimSpace(r.URL.Query().Get("tipo")); v != "" {
		kind := core.Kind(v)
		if err := kind.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, "tipo inválido")
			return
		}
		filter.Kind = kind
	}

	rows, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		respondStoreError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	row, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(row))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	row, err := s.transactions.Create(r.Context(), payload.toCore())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create transaction",
			"descripcion", payload.Descripcion,
			"error", err)
		respondStoreError(w, err)
		return
	}

	s.InvalidateSummaries()
	respondJSON(w, http.StatusCreated, toTransactionResponse(row))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	row, err := s.transactions.Update(r.Context(), id, payload.toCore())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to update transaction",
			"id", id,
			"error", err)
		respondStoreError(w, err)
		return
	}

	s.InvalidateSummaries()
	respondJSON(w, http.StatusOK, toTransactionResponse(row))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := s.transactions.Delete(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete transaction",
			"id", id,
			"error", err)
		respondStoreError(w, err)
		return
	}

	s.InvalidateSummaries()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Transacción eliminada"})
}
