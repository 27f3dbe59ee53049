package main

import (
	"encoding/json"
	"net/http"

	"wayfinder.opentransit.org/internal/model"
)

type journeyListResponse struct {
	Journeys []model.JourneyResult `json:"journeys"`
	Count    int                   `json:"count"`
}

func (api *apiServer) sendJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		api.app.Logger.Error("failed to encode response", "error", err)
	}
}

func (api *apiServer) sendJourneys(w http.ResponseWriter, r *http.Request, journeys []model.JourneyResult) {
	if journeys == nil {
		journeys = []model.JourneyResult{}
	}
	api.sendJSON(w, r, http.StatusOK, journeyListResponse{
		Journeys: journeys,
		Count:    len(journeys),
	})
}
