package http

import (
	"net/http"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list categories", "error", err)
		respondStoreError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	category := payload.toCore()
	if err := category.Validate(); err != nil {
		respondStoreError(w, err)
		return
	}

	id, err := s.store.CreateCategory(r.Context(), category)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create category",
			"nombre", category.Name,
			"error", err)
		respondStoreError(w, err)
		return
	}
	category.ID = id

	s.InvalidateSummaries()
	respondJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var payload categoryPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	category := payload.toCore()
	if err := category.Validate(); err != nil {
		respondStoreError(w, err)
		return
	}

	if err := s.store.UpdateCategory(r.Context(), id, category); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to update category",
			"id", id,
			"error", err)
		respondStoreError(w, err)
		return
	}
	category.ID = id

	s.InvalidateSummaries()
	respondJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete category",
			"id", id,
			"error", err)
		respondStoreError(w, err)
		return
	}

	s.InvalidateSummaries()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Categoría eliminada"})
}
