package main

import (
	"errors"
	"net/http"

	"wayfinder.opentransit.org/internal/planner"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (api *apiServer) errorJSON(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	api.sendJSON(w, r, status, errorResponse{Code: code, Message: message})
}

func (api *apiServer) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.errorJSON(w, r, http.StatusUnauthorized, "permission_denied", "permission denied")
}

func (api *apiServer) badRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	api.errorJSON(w, r, http.StatusBadRequest, "bad_request", message)
}

func (api *apiServer) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.app.Logger.Error("internal server error",
		"method", r.Method, "path", r.URL.Path, "error", err.Error())
	api.errorJSON(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
}

// searchErrorResponse maps the planner's error taxonomy onto HTTP
// statuses so clients can message each condition differently.
func (api *apiServer) searchErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrStopNotFound):
		api.errorJSON(w, r, http.StatusNotFound, "stop_not_found", err.Error())
	case errors.Is(err, planner.ErrNoStopsNearLocation):
		api.errorJSON(w, r, http.StatusNotFound, "no_stops_near_location", err.Error())
	case errors.Is(err, planner.ErrNoRouteFound):
		api.errorJSON(w, r, http.StatusNotFound, "no_route_found", err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}
