package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/model"
	"wayfinder.opentransit.org/internal/utils"
)

// planHandler plans between two known stop ids.
// GET /api/journey/plan?from=<stopId>&to=<stopId>&departure=<RFC3339>
func (api *apiServer) planHandler(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := utils.ValidateID(from); err != nil {
		api.badRequestResponse(w, r, "parameter 'from': "+err.Error())
		return
	}
	if err := utils.ValidateID(to); err != nil {
		api.badRequestResponse(w, r, "parameter 'to': "+err.Error())
		return
	}

	departure, err := parseDeparture(r)
	if err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	journeys, err := api.app.Planner.FindRoute(r.Context(), from, to, departure)
	if err != nil {
		api.searchErrorResponse(w, r, err)
		return
	}
	api.sendJourneys(w, r, journeys)
}

// planByCoordinatesHandler plans between two arbitrary points.
// GET /api/journey/plan-by-coordinates?fromLat=&fromLon=&toLat=&toLon=
func (api *apiServer) planByCoordinatesHandler(w http.ResponseWriter, r *http.Request) {
	fromLat, err1 := queryFloat(r, "fromLat")
	fromLon, err2 := queryFloat(r, "fromLon")
	toLat, err3 := queryFloat(r, "toLat")
	toLon, err4 := queryFloat(r, "toLon")
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			api.badRequestResponse(w, r, err.Error())
			return
		}
	}

	if !(geo.Point{Lat: fromLat, Lon: fromLon}).Valid() || !(geo.Point{Lat: toLat, Lon: toLon}).Valid() {
		api.badRequestResponse(w, r, "coordinates out of range")
		return
	}

	departure, err := parseDeparture(r)
	if err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	journeys, err := api.app.Planner.FindRouteFromCoordinates(r.Context(), fromLat, fromLon, toLat, toLon, departure)
	if err != nil {
		api.searchErrorResponse(w, r, err)
		return
	}
	api.sendJourneys(w, r, journeys)
}

// planByAddressHandler geocodes two free-text addresses and plans
// between the best matches.
// GET /api/journey/plan-by-address?from=<text>&to=<text>
func (api *apiServer) planByAddressHandler(w http.ResponseWriter, r *http.Request) {
	from, err := utils.ValidateAndSanitizeQuery(r.URL.Query().Get("from"))
	if err != nil {
		api.badRequestResponse(w, r, "parameter 'from': "+err.Error())
		return
	}
	to, err := utils.ValidateAndSanitizeQuery(r.URL.Query().Get("to"))
	if err != nil {
		api.badRequestResponse(w, r, "parameter 'to': "+err.Error())
		return
	}
	if from == "" || to == "" {
		api.badRequestResponse(w, r, "parameters 'from' and 'to' are required")
		return
	}

	departure, err := parseDeparture(r)
	if err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	journeys, err := api.app.Planner.FindRouteFromAddresses(r.Context(), from, to, departure)
	if err != nil {
		api.searchErrorResponse(w, r, err)
		return
	}
	api.sendJourneys(w, r, journeys)
}

type pointPayload struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type multiRouteRequest struct {
	From          *pointPayload              `json:"from" validate:"required"`
	To            *pointPayload              `json:"to" validate:"required"`
	DepartureTime *time.Time                 `json:"departureTime,omitempty"`
	Preferences   *model.RoutingPreferences  `json:"preferences,omitempty"`
	MaxRoutes     int                        `json:"maxRoutes" validate:"gte=0,lte=10"`
}

// multiRouteHandler runs the preference-aware multi-route search.
// POST /api/journey/multi
func (api *apiServer) multiRouteHandler(w http.ResponseWriter, r *http.Request) {
	var req multiRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.badRequestResponse(w, r, "invalid JSON body")
		return
	}
	if err := api.validate.Struct(req); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	prefs := model.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
		if err := api.validate.Struct(prefs); err != nil {
			api.badRequestResponse(w, r, err.Error())
			return
		}
	}

	departure := time.Now()
	if req.DepartureTime != nil {
		departure = *req.DepartureTime
	}

	journeys, err := api.app.Planner.FindMultipleRoutes(r.Context(),
		geo.Point{Lat: req.From.Lat, Lon: req.From.Lon},
		geo.Point{Lat: req.To.Lat, Lon: req.To.Lon},
		departure, prefs, req.MaxRoutes)
	if err != nil {
		api.searchErrorResponse(w, r, err)
		return
	}
	api.sendJourneys(w, r, journeys)
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("parameter %q is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be a number", name)
	}
	return v, nil
}

func parseDeparture(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("departure")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parameter 'departure' must be RFC3339")
	}
	return t, nil
}
