package matchpool

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tpg-connect/connect-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GeneratePool(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	poolDate := r.URL.Query().Get("date")
	if poolDate == "" {
		poolDate = h.service.CurrentPoolDate(time.Now())
	}

	pool, err := h.service.GenerateDailyPool(r.Context(), userID, poolDate)
	if err != nil {
		if errors.Is(err, ErrGenerationInProgress) {
			utils.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate pool")
		return
	}

	utils.RespondWithData(w, http.StatusOK, pool)
}

func (h *Handler) GetNextMatches(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	resp, err := h.service.GetNextMatches(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPoolNotReady) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch matches")
		return
	}

	utils.RespondWithData(w, http.StatusOK, resp)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	resp, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch pool status")
		return
	}

	utils.RespondWithData(w, http.StatusOK, resp)
}

func (h *Handler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	resp, err := h.service.GetCountdown(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to compute countdown")
		return
	}

	utils.RespondWithData(w, http.StatusOK, resp)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	resp, err := h.service.GetHistory(r.Context(), userID, page, perPage)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch pool history")
		return
	}

	utils.RespondWithData(w, http.StatusOK, resp)
}
