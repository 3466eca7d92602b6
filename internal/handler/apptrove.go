package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/middleware"
	"github.com/InQaaaaGit/edurise.git/internal/models"
	"github.com/InQaaaaGit/edurise.git/internal/service"
)

// HandleListTemplates возвращает шаблоны ссылок. Ответ всегда 200:
// о недоступности поставщика сообщает поле success.
func (h *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.links.ListTemplates(r.Context()))
}

// HandleLinkStats возвращает статистику по ссылке. Ответ всегда 200.
func (h *Handler) HandleLinkStats(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")
	h.writeJSON(w, http.StatusOK, h.links.GetLinkStats(r.Context(), linkID))
}

// HandleCreateLink создает отслеживаемую ссылку.
// 201 при успехе, 400 при некорректном запросе, 502 если поставщик не ответил успехом.
func (h *Handler) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLinkRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, models.CreateLinkResult{Success: false, Error: "Invalid request body"})
		return
	}

	affiliateID, _ := middleware.AffiliateIDFromContext(r.Context())

	result, err := h.links.CreateLink(r.Context(), affiliateID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			h.writeJSON(w, http.StatusBadRequest, models.CreateLinkResult{Success: false, Error: err.Error()})
		case errors.Is(err, service.ErrAffiliateNotFound):
			h.sessions.ClearSessionCookie(w)
			h.writeJSON(w, http.StatusUnauthorized, models.CreateLinkResult{Success: false, Error: "Affiliate session is no longer valid"})
		default:
			h.logger.Error("Error creating link", zap.Error(err))
			h.writeJSON(w, http.StatusInternalServerError, models.CreateLinkResult{Success: false, Error: "Internal server error"})
		}
		return
	}

	if !result.Success {
		h.writeJSON(w, http.StatusBadGateway, result)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}
