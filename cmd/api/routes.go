package main

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"wayfinder.opentransit.org/internal/app"
	"wayfinder.opentransit.org/internal/logging"
)

type apiServer struct {
	app      *app.Application
	validate *validator.Validate
}

func newAPIServer(application *app.Application) *apiServer {
	return &apiServer{
		app:      application,
		validate: validator.New(),
	}
}

func (api *apiServer) routes() http.Handler {
	router := httprouter.New()

	// httprouter rejects a static path that collides with a wildcard
	// segment, so the nearby search lives on its own prefix.
	router.HandlerFunc(http.MethodGet, "/api/stops-nearby", api.nearbyStopsHandler)
	router.HandlerFunc(http.MethodGet, "/api/stops/:id", api.stopHandler)

	router.HandlerFunc(http.MethodGet, "/api/journey/plan", api.planHandler)
	router.HandlerFunc(http.MethodGet, "/api/journey/plan-by-coordinates", api.planByCoordinatesHandler)
	router.HandlerFunc(http.MethodGet, "/api/journey/plan-by-address", api.planByAddressHandler)
	router.HandlerFunc(http.MethodPost, "/api/journey/multi", api.multiRouteHandler)

	return api.requestLogging(api.requireAPIKey(router))
}

func (api *apiServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.app.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (api *apiServer) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		logging.LogHTTPRequest(api.app.Logger, r.Method, r.URL.Path,
			recorder.status, float64(time.Since(start).Microseconds())/1000)
	})
}
