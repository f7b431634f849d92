package http

import (
	"net/http"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListRecurringTemplates(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list recurring templates", "error", err)
		respondStoreError(w, err)
		return
	}

	out := make([]recurringResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecurringResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var payload recurringPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	template := payload.toCore()
	if err := template.Validate(); err != nil {
		respondStoreError(w, err)
		return
	}

	id, err := s.store.CreateRecurringTemplate(r.Context(), template)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create recurring template",
			"descripcion", template.Description,
			"error", err)
		respondStoreError(w, err)
		return
	}
	template.ID = id

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":          id,
		"descripcion": template.Description,
		"monto":       template.Amount,
		"tipo":        template.Kind,
		"dia_mes":     template.DayOfMonth,
		"activo":      template.Active,
	})
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var payload recurringPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	template := payload.toCore()
	if err := template.Validate(); err != nil {
		respondStoreError(w, err)
		return
	}

	if err := s.store.UpdateRecurringTemplate(r.Context(), id, template); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to update recurring template",
			"id", id,
			"error", err)
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Gasto recurrente actualizado"})
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := s.store.DeleteRecurringTemplate(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete recurring template",
			"id", id,
			"error", err)
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Gasto recurrente eliminado"})
}

// handleProcessRecurring acknowledges immediately; the pass runs in the
// background and its outcome is observable through data and logs.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	s.trigger.RunNow()
	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Procesamiento de gastos recurrentes iniciado",
	})
}
