package planner

import "errors"

var (
	// ErrStopNotFound means a referenced stop id does not exist in the
	// store. Fails fast, never retried.
	ErrStopNotFound = errors.New("stop not found")

	// ErrNoStopsNearLocation means the nearby-stop search radius was
	// exhausted with zero candidates. Distinct from ErrStopNotFound so
	// callers can suggest widening the search.
	ErrNoStopsNearLocation = errors.New("no stops near location")

	// ErrNoRouteFound means the search completed but produced zero
	// journeys after sanity filtering.
	ErrNoRouteFound = errors.New("no route found")
)
