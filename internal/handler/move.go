// Package handler exposes the ops HTTP surface that shares the metrics
// listener. It is a thin JSON shim over the movement service; the real
// player transport lives outside this server.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realm-server/internal/models"
	"realm-server/internal/service"
)

type moveRequest struct {
	PlayerID         uuid.UUID `json:"playerId"`
	Input            string    `json:"input"`
	OriginLocationID uuid.UUID `json:"originLocationId,omitempty"`
}

type moveResponse struct {
	Status        service.MoveStatus `json:"status"`
	Direction     string             `json:"direction,omitempty"`
	LocationID    *uuid.UUID         `json:"locationId,omitempty"`
	Clarification string             `json:"clarification,omitempty"`
	HintRecorded  bool               `json:"hintRecorded,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// MoveHandler serves POST /move.
type MoveHandler struct {
	movement *service.MovementService
	logger   *zap.Logger
}

// NewMoveHandler creates the move endpoint.
func NewMoveHandler(movement *service.MovementService, logger *zap.Logger) *MoveHandler {
	return &MoveHandler{movement: movement, logger: logger.Named("MoveHandler")}
}

func (h *MoveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.PlayerID == uuid.Nil || req.Input == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "playerId and input are required"})
		return
	}

	result, err := h.movement.Move(r.Context(), service.MoveRequest{
		PlayerID:         req.PlayerID,
		Input:            req.Input,
		OriginLocationID: req.OriginLocationID,
	})
	if err != nil {
		writeJSON(w, statusForMoveError(err), errorResponse{Error: err.Error()})
		return
	}

	resp := moveResponse{
		Status:        result.Status,
		Clarification: result.Clarification,
		HintRecorded:  result.HintRecorded,
	}
	if result.Direction != "" {
		resp.Direction = result.Direction.String()
	}
	if result.Location != nil {
		id := result.Location.ID
		resp.LocationID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusForMoveError(err error) int {
	switch {
	case errors.Is(err, models.ErrPlayerNotFound),
		errors.Is(err, models.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNoExit),
		errors.Is(err, models.ErrInvalidDirection),
		errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTargetLocationNotFound):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
