package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/model"
	"wayfinder.opentransit.org/internal/utils"
)

// SearchLimits bounds the heuristic search. The defaults trade
// completeness for speed; raising them widens the candidate space at
// query cost.
type SearchLimits struct {
	// DirectWalkMeters short-circuits the search with a walk-only
	// journey when the endpoints are closer than this.
	DirectWalkMeters float64

	// MaxDirectRoutes caps journeys emitted by the direct search.
	MaxDirectRoutes int

	// MaxTransferCandidates caps transfer points considered per
	// batched store query.
	MaxTransferCandidates int

	// MaxOneTransferResults keeps the best N one-transfer journeys.
	MaxOneTransferResults int

	// MaxTwoTransferResults keeps the best N two-transfer journeys.
	MaxTwoTransferResults int

	// MaxIntermediateRoutes bounds the route fan-out of the
	// two-transfer search.
	MaxIntermediateRoutes int

	// MaxStopsPerRouteScan bounds how many stops of an origin route
	// are inspected while discovering intermediate routes.
	MaxStopsPerRouteScan int

	// MaxCandidateStops caps boarding/alighting candidates per
	// endpoint in coordinate searches.
	MaxCandidateStops int

	// CandidateRadiusMeters is the nearby-stop search radius for
	// coordinate endpoints.
	CandidateRadiusMeters float64

	// MaxJourneyMinutes discards implausibly long journeys, treated
	// as coordinate or data errors rather than real options.
	MaxJourneyMinutes int

	// MaxWalkFallbackMinutes caps the walk-only fallback journey.
	MaxWalkFallbackMinutes int

	// MaxResults truncates merged coordinate-search results.
	MaxResults int
}

// DefaultLimits returns the production search bounds.
func DefaultLimits() SearchLimits {
	return SearchLimits{
		DirectWalkMeters:       500,
		MaxDirectRoutes:        3,
		MaxTransferCandidates:  5,
		MaxOneTransferResults:  3,
		MaxTwoTransferResults:  2,
		MaxIntermediateRoutes:  10,
		MaxStopsPerRouteScan:   15,
		MaxCandidateStops:      3,
		CandidateRadiusMeters:  800,
		MaxJourneyMinutes:      180,
		MaxWalkFallbackMinutes: 60,
		MaxResults:             5,
	}
}

// Planner is the journey search engine. It tries direct routes, then
// one transfer, then two, against the stop store, estimating segment
// times heuristically when schedule data is missing.
type Planner struct {
	store     StopStore
	nearby    *NearbyFinder
	estimator *Estimator
	geocoder  Geocoder
	cache     Cache
	logger    *slog.Logger
	limits    SearchLimits
	scorer    Scorer
}

// NewPlanner wires a planner over a stop store. geocoder and cache may
// be nil; address search then fails and lookups are never memoized.
func NewPlanner(store StopStore, estimator *Estimator, geocoder Geocoder, cache Cache, logger *slog.Logger, limits SearchLimits) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if estimator == nil {
		estimator = NewEstimator(DefaultProfiles())
	}
	if limits.MaxJourneyMinutes == 0 {
		limits = DefaultLimits()
	}
	return &Planner{
		store:     store,
		nearby:    NewNearbyFinder(store, cache),
		estimator: estimator,
		geocoder:  geocoder,
		cache:     cache,
		logger:    logger,
		limits:    limits,
	}
}

// Nearby exposes the planner's nearby-stop finder.
func (p *Planner) Nearby() *NearbyFinder {
	return p.nearby
}

// FindRoute searches for journeys between two known stops. It returns
// an empty slice, not an error, when nothing plausible is found.
func (p *Planner) FindRoute(ctx context.Context, fromStopID, toStopID string, departure time.Time) ([]model.JourneyResult, error) {
	if departure.IsZero() {
		departure = time.Now()
	}

	from, err := p.store.GetStopByID(ctx, fromStopID)
	if err != nil {
		return nil, fmt.Errorf("resolving origin stop: %w", err)
	}
	if from == nil {
		return nil, fmt.Errorf("origin %q: %w", fromStopID, ErrStopNotFound)
	}
	to, err := p.store.GetStopByID(ctx, toStopID)
	if err != nil {
		return nil, fmt.Errorf("resolving destination stop: %w", err)
	}
	if to == nil {
		return nil, fmt.Errorf("destination %q: %w", toStopID, ErrStopNotFound)
	}

	if from.ID == to.ID {
		return []model.JourneyResult{p.walkJourney(departure, 0)}, nil
	}

	distance := geo.DistanceMeters(from.Lat, from.Lon, to.Lat, to.Lon)
	if distance < p.limits.DirectWalkMeters {
		return []model.JourneyResult{p.walkJourney(departure, distance)}, nil
	}

	routesFrom, err := p.store.GetRoutesByStopID(ctx, from.ID)
	if err != nil {
		return nil, fmt.Errorf("routes at origin: %w", err)
	}
	routesTo, err := p.store.GetRoutesByStopID(ctx, to.ID)
	if err != nil {
		return nil, fmt.Errorf("routes at destination: %w", err)
	}

	journeys := p.directJourneys(ctx, from, to, routesFrom, routesTo, distance, departure)
	if len(journeys) == 0 {
		journeys, err = p.oneTransferJourneys(ctx, from, to, routesFrom, routesTo, departure)
		if err != nil {
			return nil, err
		}
	}
	if len(journeys) == 0 {
		journeys, err = p.twoTransferJourneys(ctx, from, to, routesFrom, routesTo, departure)
		if err != nil {
			return nil, err
		}
	}

	journeys = p.sanityFilter(journeys)
	if len(journeys) == 0 {
		walkMinutes := geo.WalkingMinutesCeil(distance)
		if walkMinutes <= p.limits.MaxWalkFallbackMinutes {
			return []model.JourneyResult{p.walkJourney(departure, distance)}, nil
		}
		return []model.JourneyResult{}, nil
	}
	return journeys, nil
}

// FindRouteFromCoordinates plans journeys between two arbitrary points
// by fanning out over nearby candidate stops on each side.
func (p *Planner) FindRouteFromCoordinates(ctx context.Context, fromLat, fromLon, toLat, toLon float64, departure time.Time) ([]model.JourneyResult, error) {
	if departure.IsZero() {
		departure = time.Now()
	}

	directDistance := geo.DistanceMeters(fromLat, fromLon, toLat, toLon)
	if directDistance < p.limits.DirectWalkMeters {
		return []model.JourneyResult{p.walkJourney(departure, directDistance)}, nil
	}

	origins, err := p.nearby.FindBestNearbyStops(ctx, fromLat, fromLon, p.limits.MaxCandidateStops, p.limits.CandidateRadiusMeters)
	if err != nil {
		return nil, err
	}
	if len(origins) == 0 {
		return nil, fmt.Errorf("origin: %w", ErrNoStopsNearLocation)
	}
	destinations, err := p.nearby.FindBestNearbyStops(ctx, toLat, toLon, p.limits.MaxCandidateStops, p.limits.CandidateRadiusMeters)
	if err != nil {
		return nil, err
	}
	if len(destinations) == 0 {
		return nil, fmt.Errorf("destination: %w", ErrNoStopsNearLocation)
	}

	// Candidate pair searches are independent and read-only, so they
	// fan out concurrently. A failing pair is dropped, not fatal.
	var (
		mu     sync.Mutex
		merged []model.JourneyResult
		wg     sync.WaitGroup
	)
	for _, o := range origins {
		for _, d := range destinations {
			wg.Add(1)
			go func(o, d NearbyStop) {
				defer wg.Done()

				journeys, err := p.FindRoute(ctx, o.Stop.ID, d.Stop.ID, departure)
				if err != nil {
					p.logger.Debug("candidate pair search failed",
						slog.String("from", o.Stop.ID),
						slog.String("to", d.Stop.ID),
						slog.String("error", err.Error()))
					return
				}

				mu.Lock()
				for _, j := range journeys {
					merged = append(merged, p.extendWithWalks(j, o, d, departure))
				}
				mu.Unlock()
			}(o, d)
		}
	}
	wg.Wait()

	merged = dedupeByRoutes(merged)
	merged = p.sanityFilter(merged)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].TotalDuration < merged[j].TotalDuration
	})
	if len(merged) > p.limits.MaxResults {
		merged = merged[:p.limits.MaxResults]
	}

	if len(merged) == 0 {
		walkMinutes := geo.WalkingMinutesCeil(directDistance)
		if walkMinutes <= p.limits.MaxWalkFallbackMinutes {
			return []model.JourneyResult{p.walkJourney(departure, directDistance)}, nil
		}
		return nil, ErrNoRouteFound
	}
	return merged, nil
}

// FindRouteFromLocations is FindRouteFromCoordinates over geo.Points.
func (p *Planner) FindRouteFromLocations(ctx context.Context, from, to geo.Point, departure time.Time) ([]model.JourneyResult, error) {
	return p.FindRouteFromCoordinates(ctx, from.Lat, from.Lon, to.Lat, to.Lon, departure)
}

// FindRouteFromAddresses geocodes two free-text addresses and plans
// between the best matches.
func (p *Planner) FindRouteFromAddresses(ctx context.Context, fromAddress, toAddress string, departure time.Time) ([]model.JourneyResult, error) {
	from, err := p.geocodeOne(ctx, fromAddress)
	if err != nil {
		return nil, err
	}
	to, err := p.geocodeOne(ctx, toAddress)
	if err != nil {
		return nil, err
	}
	return p.FindRouteFromCoordinates(ctx, from.Lat, from.Lon, to.Lat, to.Lon, departure)
}

func (p *Planner) geocodeOne(ctx context.Context, address string) (*GeocodeResult, error) {
	if p.geocoder == nil {
		return nil, fmt.Errorf("no geocoder configured")
	}

	cacheKey := "geocode:" + address
	if p.cache != nil {
		if v, ok := p.cache.Get(cacheKey); ok {
			if r, ok := v.(GeocodeResult); ok {
				return &r, nil
			}
		}
	}

	results, err := p.geocoder.GeocodeAddress(ctx, address, 1)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", address, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geocoding %q: no matches", address)
	}

	if p.cache != nil {
		p.cache.Set(cacheKey, results[0])
	}
	return &results[0], nil
}

func (p *Planner) directJourneys(ctx context.Context, from, to *model.Stop, routesFrom, routesTo []model.Route, distance float64, departure time.Time) []model.JourneyResult {
	atDestination := make(map[string]bool, len(routesTo))
	for _, r := range routesTo {
		atDestination[r.ID] = true
	}

	var journeys []model.JourneyResult
	for _, route := range routesFrom {
		if !atDestination[route.ID] {
			continue
		}
		if len(journeys) >= p.limits.MaxDirectRoutes {
			break
		}

		route := route
		segment := model.RouteSegment{
			Type:            model.SegmentTransit,
			Route:           &route,
			Headsign:        p.headsign(ctx, route.ID, from, to),
			DurationMinutes: p.transitMinutes(ctx, route, from, to),
			DistanceMeters:  distance,
		}
		journeys = append(journeys, p.assembleJourney(departure, []model.RouteSegment{segment}))
	}

	sort.Slice(journeys, func(i, j int) bool {
		return journeys[i].TotalDuration < journeys[j].TotalDuration
	})
	return journeys
}

func (p *Planner) oneTransferJourneys(ctx context.Context, from, to *model.Stop, routesFrom, routesTo []model.Route, departure time.Time) ([]model.JourneyResult, error) {
	if len(routesFrom) == 0 || len(routesTo) == 0 {
		return nil, nil
	}

	transfers, err := p.store.FindTransferStops(ctx, routeIDs(routesFrom), routeIDs(routesTo), p.limits.MaxTransferCandidates*2)
	if err != nil {
		return nil, fmt.Errorf("transfer stop query: %w", err)
	}

	seenPair := make(map[string]bool)
	var journeys []model.JourneyResult
	for _, t := range transfers {
		if t.FromRouteID == t.ToRouteID {
			continue
		}
		pair := t.FromRouteID + ">" + t.ToRouteID
		if seenPair[pair] {
			continue
		}
		if t.StopID == from.ID || t.StopID == to.ID {
			continue
		}
		seenPair[pair] = true
		if len(seenPair) > p.limits.MaxTransferCandidates {
			break
		}

		first := routeByID(routesFrom, t.FromRouteID)
		second := routeByID(routesTo, t.ToRouteID)
		if first == nil || second == nil {
			continue
		}
		via := model.Stop{ID: t.StopID, Name: t.StopName, Lat: t.Lat, Lon: t.Lon}

		segments := []model.RouteSegment{
			{
				Type:            model.SegmentTransit,
				Route:           first,
				Headsign:        p.headsign(ctx, first.ID, from, &via),
				DurationMinutes: p.transitMinutes(ctx, *first, from, &via),
				DistanceMeters:  geo.DistanceMeters(from.Lat, from.Lon, via.Lat, via.Lon),
			},
			{
				Type:            model.SegmentTransit,
				Route:           second,
				Headsign:        p.headsign(ctx, second.ID, &via, to),
				DurationMinutes: p.transitMinutes(ctx, *second, &via, to),
				DistanceMeters:  geo.DistanceMeters(via.Lat, via.Lon, to.Lat, to.Lon),
			},
		}
		journeys = append(journeys, p.assembleJourney(departure, segments))
	}

	sort.Slice(journeys, func(i, j int) bool {
		return journeys[i].TotalDuration < journeys[j].TotalDuration
	})
	if len(journeys) > p.limits.MaxOneTransferResults {
		journeys = journeys[:p.limits.MaxOneTransferResults]
	}
	return journeys, nil
}

// twoTransferJourneys discovers routes reachable from the origin's
// routes via any shared stop, then batch-queries transfer points from
// those intermediate routes to the destination's routes.
func (p *Planner) twoTransferJourneys(ctx context.Context, from, to *model.Stop, routesFrom, routesTo []model.Route, departure time.Time) ([]model.JourneyResult, error) {
	if len(routesFrom) == 0 || len(routesTo) == 0 {
		return nil, nil
	}

	fromSet := make(map[string]bool, len(routesFrom))
	for _, r := range routesFrom {
		fromSet[r.ID] = true
	}
	toSet := make(map[string]bool, len(routesTo))
	for _, r := range routesTo {
		toSet[r.ID] = true
	}

	type boarding struct {
		via  model.Route // origin route ridden first
		stop model.Stop  // where the intermediate route is boarded
	}
	intermediate := make(map[string]model.Route)
	boardings := make(map[string]boarding)

scan:
	for _, origin := range routesFrom {
		stops, err := p.store.GetStopsByRouteID(ctx, origin.ID)
		if err != nil {
			p.logger.Debug("route stop scan failed",
				slog.String("route", origin.ID),
				slog.String("error", err.Error()))
			continue
		}
		if len(stops) > p.limits.MaxStopsPerRouteScan {
			stops = stops[:p.limits.MaxStopsPerRouteScan]
		}
		for _, stop := range stops {
			if stop.ID == from.ID {
				continue
			}
			routes, err := p.store.GetRoutesByStopID(ctx, stop.ID)
			if err != nil {
				continue
			}
			for _, r := range routes {
				if fromSet[r.ID] || toSet[r.ID] {
					continue
				}
				if _, ok := intermediate[r.ID]; ok {
					continue
				}
				intermediate[r.ID] = r
				boardings[r.ID] = boarding{via: origin, stop: stop}
				if len(intermediate) >= p.limits.MaxIntermediateRoutes {
					break scan
				}
			}
		}
	}
	if len(intermediate) == 0 {
		return nil, nil
	}

	midIDs := make([]string, 0, len(intermediate))
	for id := range intermediate {
		midIDs = append(midIDs, id)
	}
	sort.Strings(midIDs)

	transfers, err := p.store.FindTransferStops(ctx, midIDs, routeIDs(routesTo), p.limits.MaxTransferCandidates)
	if err != nil {
		return nil, fmt.Errorf("second transfer stop query: %w", err)
	}

	var journeys []model.JourneyResult
	for _, t := range transfers {
		mid, ok := intermediate[t.FromRouteID]
		if !ok {
			continue
		}
		last := routeByID(routesTo, t.ToRouteID)
		if last == nil {
			continue
		}
		board := boardings[mid.ID]
		if board.stop.ID == t.StopID || t.StopID == to.ID {
			continue
		}

		first := board.via
		firstStop := board.stop
		secondStop := model.Stop{ID: t.StopID, Name: t.StopName, Lat: t.Lat, Lon: t.Lon}

		segments := []model.RouteSegment{
			{
				Type:            model.SegmentTransit,
				Route:           &first,
				Headsign:        p.headsign(ctx, first.ID, from, &firstStop),
				DurationMinutes: p.transitMinutes(ctx, first, from, &firstStop),
				DistanceMeters:  geo.DistanceMeters(from.Lat, from.Lon, firstStop.Lat, firstStop.Lon),
			},
			{
				Type:            model.SegmentTransit,
				Route:           &mid,
				Headsign:        p.headsign(ctx, mid.ID, &firstStop, &secondStop),
				DurationMinutes: p.transitMinutes(ctx, mid, &firstStop, &secondStop),
				DistanceMeters:  geo.DistanceMeters(firstStop.Lat, firstStop.Lon, secondStop.Lat, secondStop.Lon),
			},
			{
				Type:            model.SegmentTransit,
				Route:           last,
				Headsign:        p.headsign(ctx, last.ID, &secondStop, to),
				DurationMinutes: p.transitMinutes(ctx, *last, &secondStop, to),
				DistanceMeters:  geo.DistanceMeters(secondStop.Lat, secondStop.Lon, to.Lat, to.Lon),
			},
		}
		journeys = append(journeys, p.assembleJourney(departure, segments))
	}

	sort.Slice(journeys, func(i, j int) bool {
		return journeys[i].TotalDuration < journeys[j].TotalDuration
	})
	if len(journeys) > p.limits.MaxTwoTransferResults {
		journeys = journeys[:p.limits.MaxTwoTransferResults]
	}
	return journeys, nil
}

// transitMinutes estimates one transit leg. Real schedule data wins;
// the mode heuristic covers everything else.
func (p *Planner) transitMinutes(ctx context.Context, route model.Route, from, to *model.Stop) int {
	actual, err := p.store.GetActualTravelTime(ctx, route.ID, from.ID, to.ID)
	if err == nil && actual != nil {
		return p.estimator.ScheduledMinutes(route.Type, *actual)
	}

	distance := geo.DistanceMeters(from.Lat, from.Lon, to.Lat, to.Lon)
	return p.estimator.SegmentMinutes(route.Type, distance)
}

// headsign labels the boarding direction: the scheduled trip headsign
// when the store has one, otherwise a compass bearing toward the
// alighting stop.
func (p *Planner) headsign(ctx context.Context, routeID string, from, toward *model.Stop) string {
	info, err := p.store.GetTripInfoForRoute(ctx, routeID, toward.ID, from.ID)
	if err == nil && info != nil && info.Headsign != "" {
		return info.Headsign
	}
	return "toward " + utils.CompassDirection(from.Lat, from.Lon, toward.Lat, toward.Lon)
}

// assembleJourney stamps departure/arrival times through the segments,
// inserting the fixed transfer penalty between consecutive transit
// legs, and computes the journey totals.
func (p *Planner) assembleJourney(departure time.Time, segments []model.RouteSegment) model.JourneyResult {
	cursor := departure
	var walkDistance float64
	transitCount := 0
	previousTransit := false

	for i := range segments {
		s := &segments[i]
		if s.Type == model.SegmentTransit && previousTransit {
			cursor = cursor.Add(TransferPenaltyMinutes * time.Minute)
		}
		s.DepartureTime = cursor
		s.ArrivalTime = cursor.Add(time.Duration(s.DurationMinutes) * time.Minute)
		cursor = s.ArrivalTime

		if s.Type == model.SegmentWalk {
			walkDistance += s.DistanceMeters
		} else {
			transitCount++
		}
		previousTransit = s.Type == model.SegmentTransit
	}

	transfers := 0
	if transitCount > 0 {
		transfers = transitCount - 1
	}

	return model.JourneyResult{
		ID:                uuid.NewString(),
		Segments:          segments,
		TotalDuration:     int(cursor.Sub(departure).Minutes()),
		TotalWalkDistance: walkDistance,
		Transfers:         transfers,
		DepartureTime:     departure,
		ArrivalTime:       cursor,
	}
}

func (p *Planner) walkJourney(departure time.Time, distanceMeters float64) model.JourneyResult {
	segment := model.RouteSegment{
		Type:            model.SegmentWalk,
		DurationMinutes: geo.WalkingMinutesCeil(distanceMeters),
		DistanceMeters:  distanceMeters,
	}
	return p.assembleJourney(departure, []model.RouteSegment{segment})
}

// extendWithWalks rebuilds a stop-to-stop journey with access and
// egress walking legs to the virtual endpoints.
func (p *Planner) extendWithWalks(j model.JourneyResult, origin, destination NearbyStop, departure time.Time) model.JourneyResult {
	var segments []model.RouteSegment
	if origin.DistanceMeters > 1 {
		segments = append(segments, model.RouteSegment{
			Type:            model.SegmentWalk,
			DurationMinutes: origin.WalkingMinutes,
			DistanceMeters:  origin.DistanceMeters,
		})
	}
	segments = append(segments, j.Segments...)
	if destination.DistanceMeters > 1 {
		segments = append(segments, model.RouteSegment{
			Type:            model.SegmentWalk,
			DurationMinutes: destination.WalkingMinutes,
			DistanceMeters:  destination.DistanceMeters,
		})
	}
	return p.assembleJourney(departure, segments)
}

func (p *Planner) sanityFilter(journeys []model.JourneyResult) []model.JourneyResult {
	kept := journeys[:0]
	for _, j := range journeys {
		if j.TotalDuration > p.limits.MaxJourneyMinutes {
			p.logger.Debug("discarding implausible journey",
				slog.Int("totalDuration", j.TotalDuration),
				slog.String("routes", j.RouteIDs()))
			continue
		}
		kept = append(kept, j)
	}
	return kept
}

// dedupeByRoutes keeps the fastest journey per ordered route-id key so
// the same line combination is never shown twice.
func dedupeByRoutes(journeys []model.JourneyResult) []model.JourneyResult {
	best := make(map[string]model.JourneyResult)
	var order []string
	for _, j := range journeys {
		key := j.RouteIDs()
		existing, ok := best[key]
		if !ok {
			best[key] = j
			order = append(order, key)
			continue
		}
		if j.TotalDuration < existing.TotalDuration {
			best[key] = j
		}
	}

	out := make([]model.JourneyResult, 0, len(best))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func routeIDs(routes []model.Route) []string {
	ids := make([]string, 0, len(routes))
	for _, r := range routes {
		ids = append(ids, r.ID)
	}
	return ids
}

func routeByID(routes []model.Route, id string) *model.Route {
	for i := range routes {
		if routes[i].ID == id {
			return &routes[i]
		}
	}
	return nil
}
