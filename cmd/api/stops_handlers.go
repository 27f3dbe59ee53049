package main

import (
	"net/http"
	"strconv"

	"wayfinder.opentransit.org/internal/utils"
)

// stopHandler returns one stop by id.
// GET /api/stops/:id
func (api *apiServer) stopHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	stop, err := api.app.Store.GetStopByID(r.Context(), id)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if stop == nil {
		api.errorJSON(w, r, http.StatusNotFound, "stop_not_found", "stop not found")
		return
	}
	api.sendJSON(w, r, http.StatusOK, stop)
}

// nearbyStopsHandler lists stops around a coordinate, nearest first.
// GET /api/stops-nearby?lat=&lon=&radius=&limit=
func (api *apiServer) nearbyStopsHandler(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}
	if err := utils.ValidateLatitude(lat); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}
	if err := utils.ValidateLongitude(lon); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	radius := 500.0
	if raw := r.URL.Query().Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			api.badRequestResponse(w, r, "parameter 'radius' must be a number")
			return
		}
	}
	if err := utils.ValidateRadius(radius); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			api.badRequestResponse(w, r, "parameter 'limit' must be a positive integer")
			return
		}
	}

	stops, err := api.app.Planner.Nearby().FindNearbyStops(r.Context(), lat, lon, radius, limit)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendJSON(w, r, http.StatusOK, map[string]any{
		"stops": stops,
		"count": len(stops),
	})
}
