package planner

import (
	"context"
	"errors"
	"sort"
	"time"

	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/model"
)

// Scorer ranks a journey under a set of preferences. Higher is better.
// The weights are city-tuned rather than definitive, so the scoring
// function is pluggable.
type Scorer interface {
	Score(j model.JourneyResult, prefs model.RoutingPreferences) float64
}

// WeightedScorer scores journeys as a weighted cost of duration,
// transfers and walking distance, with the emphasis picked by
// OptimizeFor.
type WeightedScorer struct{}

func (WeightedScorer) Score(j model.JourneyResult, prefs model.RoutingPreferences) float64 {
	durationWeight, transferWeight, walkWeight := 1.0, 0.3, 0.3
	switch prefs.OptimizeFor {
	case model.OptimizeFewestTransfers:
		durationWeight, transferWeight, walkWeight = 0.3, 1.0, 0.3
	case model.OptimizeLeastWalking:
		durationWeight, transferWeight, walkWeight = 0.3, 0.3, 1.0
	}

	cost := durationWeight*float64(j.TotalDuration) +
		transferWeight*float64(j.Transfers)*15 +
		walkWeight*j.TotalWalkDistance/100

	return 1000 - cost
}

// multiCandidateStops widens the per-endpoint candidate set for
// multi-route searches so the preference filter has alternatives to
// choose between.
const multiCandidateStops = 5

// FindMultipleRoutes runs the coordinate search and post-processes the
// candidates with the rider's preferences: mode allow-list, transfer
// cap and walking ceiling, then weighted scoring and comparative tags.
// It returns an empty slice rather than an error when nothing is found.
func (p *Planner) FindMultipleRoutes(ctx context.Context, from, to geo.Point, departure time.Time, prefs model.RoutingPreferences, maxRoutes int) ([]model.JourneyResult, error) {
	wide := *p
	if wide.limits.MaxCandidateStops < multiCandidateStops {
		wide.limits.MaxCandidateStops = multiCandidateStops
	}
	base, err := wide.FindRouteFromCoordinates(ctx, from.Lat, from.Lon, to.Lat, to.Lon, departure)
	if err != nil {
		if errors.Is(err, ErrNoRouteFound) {
			return []model.JourneyResult{}, nil
		}
		return nil, err
	}
	return p.applyPreferences(base, prefs, maxRoutes), nil
}

// FindMultipleRoutesFromAddresses is FindMultipleRoutes over geocoded
// free-text addresses.
func (p *Planner) FindMultipleRoutesFromAddresses(ctx context.Context, fromAddress, toAddress string, departure time.Time, prefs model.RoutingPreferences, maxRoutes int) ([]model.JourneyResult, error) {
	from, err := p.geocodeOne(ctx, fromAddress)
	if err != nil {
		return nil, err
	}
	to, err := p.geocodeOne(ctx, toAddress)
	if err != nil {
		return nil, err
	}
	return p.FindMultipleRoutes(ctx, geo.Point{Lat: from.Lat, Lon: from.Lon}, geo.Point{Lat: to.Lat, Lon: to.Lon}, departure, prefs, maxRoutes)
}

// SetScorer replaces the ranking strategy.
func (p *Planner) SetScorer(s Scorer) {
	p.scorer = s
}

func (p *Planner) applyPreferences(base []model.JourneyResult, prefs model.RoutingPreferences, maxRoutes int) []model.JourneyResult {
	if maxRoutes <= 0 {
		maxRoutes = p.limits.MaxResults
	}
	if len(base) == 0 {
		return []model.JourneyResult{}
	}

	var walkOnly, transit []model.JourneyResult
	for _, j := range base {
		if j.IsWalkOnly() {
			walkOnly = append(walkOnly, j)
		} else {
			transit = append(transit, j)
		}
	}

	var filtered []model.JourneyResult
	for _, j := range transit {
		if !journeyModesAllowed(j, prefs) {
			continue
		}
		if j.Transfers > prefs.MaxTransfers {
			continue
		}
		if prefs.MaxWalkingMeters > 0 && j.TotalWalkDistance > prefs.MaxWalkingMeters {
			continue
		}
		filtered = append(filtered, j)
	}

	// One walking alternative survives filtering whenever walking is
	// allowed at all.
	if len(walkOnly) > 0 && prefs.ModeAllowed(model.ModeWalking) {
		bestWalk := walkOnly[0]
		for _, j := range walkOnly[1:] {
			if j.TotalDuration < bestWalk.TotalDuration {
				bestWalk = j
			}
		}
		filtered = append(filtered, bestWalk)
	}

	// Showing a plausible route beats showing none: if preferences
	// eliminated everything, fall back to the best base candidate.
	if len(filtered) == 0 {
		best := base[0]
		for _, j := range base[1:] {
			if j.TotalDuration < best.TotalDuration {
				best = j
			}
		}
		filtered = []model.JourneyResult{best}
	}

	scorer := p.scorer
	if scorer == nil {
		scorer = WeightedScorer{}
	}
	scores := make(map[string]float64, len(filtered))
	for _, j := range filtered {
		scores[j.ID] = scorer.Score(j, prefs)
	}

	// Transit journeys order by score. Walk-only journeys are placed
	// separately by the duration rule (after transit unless at least
	// as fast) so the two orderings never mix into an inconsistent
	// comparator.
	var ranked, walkRanked []model.JourneyResult
	for _, j := range filtered {
		if j.IsWalkOnly() {
			walkRanked = append(walkRanked, j)
		} else {
			ranked = append(ranked, j)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID] > scores[ranked[j].ID]
	})
	sort.SliceStable(walkRanked, func(i, j int) bool {
		return walkRanked[i].TotalDuration < walkRanked[j].TotalDuration
	})
	for _, w := range walkRanked {
		ranked = insertWalkByDuration(ranked, w)
	}
	filtered = ranked

	if len(filtered) > maxRoutes {
		filtered = filtered[:maxRoutes]
	}
	attachTags(filtered)
	return filtered
}

// insertWalkByDuration places a walk-only journey before the first
// transit journey it is at least as fast as, or at the end.
func insertWalkByDuration(ranked []model.JourneyResult, walk model.JourneyResult) []model.JourneyResult {
	pos := len(ranked)
	for i, j := range ranked {
		if !j.IsWalkOnly() && walk.TotalDuration <= j.TotalDuration {
			pos = i
			break
		}
	}

	out := make([]model.JourneyResult, 0, len(ranked)+1)
	out = append(out, ranked[:pos]...)
	out = append(out, walk)
	out = append(out, ranked[pos:]...)
	return out
}

func journeyModesAllowed(j model.JourneyResult, prefs model.RoutingPreferences) bool {
	for _, s := range j.Segments {
		switch s.Type {
		case model.SegmentWalk:
			if !prefs.ModeAllowed(model.ModeWalking) {
				return false
			}
		case model.SegmentTransit:
			if s.Route == nil {
				continue
			}
			if !prefs.ModeAllowed(model.ModeForRouteType(s.Route.Type)) {
				return false
			}
		}
	}
	return true
}

// attachTags labels journeys relative to the final candidate set.
func attachTags(journeys []model.JourneyResult) {
	if len(journeys) < 2 {
		return
	}

	fastest, leastWalking := 0, 0
	fewestTransfers := -1
	for i, j := range journeys {
		if j.TotalDuration < journeys[fastest].TotalDuration {
			fastest = i
		}
		if j.TotalWalkDistance < journeys[leastWalking].TotalWalkDistance {
			leastWalking = i
		}
		if !j.IsWalkOnly() && (fewestTransfers == -1 || j.Transfers < journeys[fewestTransfers].Transfers) {
			fewestTransfers = i
		}
	}

	journeys[fastest].Tags = append(journeys[fastest].Tags, "fastest")
	if fewestTransfers >= 0 {
		journeys[fewestTransfers].Tags = append(journeys[fewestTransfers].Tags, "fewest transfers")
	}
	journeys[leastWalking].Tags = append(journeys[leastWalking].Tags, "least walking")
}
