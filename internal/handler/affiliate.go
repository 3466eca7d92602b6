package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/InQaaaaGit/edurise.git/internal/middleware"
	"github.com/InQaaaaGit/edurise.git/internal/models"
	"github.com/InQaaaaGit/edurise.git/internal/service"
)

// HandleSignup регистрирует партнера и открывает для него сессию
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	affiliate, err := h.affiliates.Signup(r.Context(), req)
	if err != nil {
		h.affiliateError(w, err)
		return
	}

	if err := h.sessions.SetSessionCookie(w, affiliate.ID); err != nil {
		h.logger.Error("Error setting session cookie", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, affiliate)
}

// HandleGetMe возвращает профиль партнера текущей сессии
func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	affiliateID, _ := middleware.AffiliateIDFromContext(r.Context())

	affiliate, err := h.affiliates.GetAffiliate(r.Context(), affiliateID)
	if err != nil {
		h.affiliateError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, affiliate)
}

// HandleUpdateMe частично обновляет профиль партнера текущей сессии
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	affiliateID, _ := middleware.AffiliateIDFromContext(r.Context())

	var upd models.AffiliateUpdate
	if err := h.decodeJSON(w, r, &upd); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	affiliate, err := h.affiliates.UpdateAffiliate(r.Context(), affiliateID, upd)
	if err != nil {
		h.affiliateError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, affiliate)
}

// HandleDeleteMe удаляет профиль партнера текущей сессии и закрывает сессию
func (h *Handler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	affiliateID, _ := middleware.AffiliateIDFromContext(r.Context())

	if err := h.affiliates.DeleteAffiliate(r.Context(), affiliateID); err != nil {
		h.affiliateError(w, err)
		return
	}

	h.sessions.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMyLinks возвращает сохраненные ссылки партнера текущей сессии
func (h *Handler) HandleListMyLinks(w http.ResponseWriter, r *http.Request) {
	affiliateID, _ := middleware.AffiliateIDFromContext(r.Context())

	links, err := h.links.ListAffiliateLinks(r.Context(), affiliateID)
	if err != nil {
		h.affiliateError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, links)
}

// affiliateError переводит ошибку сервиса в HTTP-ответ
func (h *Handler) affiliateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAffiliateNotFound):
		h.sessions.ClearSessionCookie(w)
		h.writeError(w, http.StatusNotFound, "Affiliate not found")
	default:
		h.logger.Error("Affiliate operation failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
