package planner

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"wayfinder.opentransit.org/internal/model"
)

// TransferPenaltyMinutes is the fixed cost of one transfer: platform
// walk plus wait buffer, independent of mode.
const TransferPenaltyMinutes = 5

// minSegmentMinutes floors estimates so very short hops never come out
// near zero.
const minSegmentMinutes = 3

// ModeProfile holds the travel-time heuristics for one GTFS route
// type, used when no schedule data covers a segment. The values are
// design parameters calibrated against one reference city's schedule.
type ModeProfile struct {
	MinPerKm       float64 `yaml:"minPerKm"`
	AvgWaitMin     float64 `yaml:"avgWaitMin"`
	DwellPerStop   float64 `yaml:"dwellPerStopMin"`
	AvgInterStopKm float64 `yaml:"avgInterStopKm"`
}

// Profiles maps GTFS route types to their heuristics, with a fallback
// for types outside the table.
type Profiles struct {
	Modes   map[int]ModeProfile `yaml:"modes"`
	Default ModeProfile         `yaml:"default"`
}

// DefaultProfiles returns the built-in heuristic table.
func DefaultProfiles() Profiles {
	return Profiles{
		Modes: map[int]ModeProfile{
			0: {MinPerKm: 3.5, AvgWaitMin: 4, DwellPerStop: 0.4, AvgInterStopKm: 0.5}, // tram
			1: {MinPerKm: 1.7, AvgWaitMin: 3, DwellPerStop: 0.5, AvgInterStopKm: 0.9}, // metro
			2: {MinPerKm: 1.3, AvgWaitMin: 5, DwellPerStop: 0.5, AvgInterStopKm: 2.5}, // rail
			3: {MinPerKm: 3.0, AvgWaitMin: 5, DwellPerStop: 0.5, AvgInterStopKm: 0.4}, // bus
			4: {MinPerKm: 3.5, AvgWaitMin: 8, DwellPerStop: 1.0, AvgInterStopKm: 5.0}, // ferry
		},
		Default: ModeProfile{MinPerKm: 3.0, AvgWaitMin: 5, DwellPerStop: 0.5, AvgInterStopKm: 0.5},
	}
}

// LoadProfiles reads a heuristic table from a YAML file so deployments
// can recalibrate per region without code changes. Missing modes fall
// back to the file's default profile, and missing or non-positive
// fields are filled per field so a sparse file cannot introduce a
// zero divisor into the estimate math.
func LoadProfiles(path string) (Profiles, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, fmt.Errorf("loading travel profiles: %w", err)
	}

	var p Profiles
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profiles{}, fmt.Errorf("parsing travel profiles: %w", err)
	}
	p.sanitize()
	return p, nil
}

func (p *Profiles) sanitize() {
	p.Default = fillProfile(p.Default, DefaultProfiles().Default)
	for mode, profile := range p.Modes {
		p.Modes[mode] = fillProfile(profile, p.Default)
	}
}

// fillProfile substitutes fallback values for fields a YAML file left
// out. MinPerKm and AvgInterStopKm must be strictly positive; waits
// and dwells only need to be non-negative.
func fillProfile(p, fallback ModeProfile) ModeProfile {
	if p.MinPerKm <= 0 {
		p.MinPerKm = fallback.MinPerKm
	}
	if p.AvgWaitMin < 0 {
		p.AvgWaitMin = fallback.AvgWaitMin
	}
	if p.DwellPerStop < 0 {
		p.DwellPerStop = fallback.DwellPerStop
	}
	if p.AvgInterStopKm <= 0 {
		p.AvgInterStopKm = fallback.AvgInterStopKm
	}
	return p
}

// Estimator produces travel and wait time estimates from the mode
// heuristics when exact schedule data is unavailable.
type Estimator struct {
	profiles Profiles
}

func NewEstimator(profiles Profiles) *Estimator {
	if profiles.Modes == nil {
		profiles = DefaultProfiles()
	}
	return &Estimator{profiles: profiles}
}

func (e *Estimator) profile(routeType model.RouteType) ModeProfile {
	if p, ok := e.profiles.Modes[int(routeType)]; ok {
		return p
	}
	return e.profiles.Default
}

// SegmentMinutes estimates the door-to-door minutes for riding a route
// of the given type over a great-circle distance: in-vehicle travel,
// dwell at intermediate stops and the average wait for the vehicle.
func (e *Estimator) SegmentMinutes(routeType model.RouteType, distanceMeters float64) int {
	p := e.profile(routeType)
	distanceKm := distanceMeters / 1000

	travel := distanceKm * p.MinPerKm
	var dwell float64
	if p.AvgInterStopKm > 0 {
		intermediateStops := math.Max(0, math.Round(distanceKm/p.AvgInterStopKm)-1)
		dwell = intermediateStops * p.DwellPerStop
	}

	estimate := int(math.Round(travel + dwell + p.AvgWaitMin))
	if estimate < minSegmentMinutes {
		return minSegmentMinutes
	}
	return estimate
}

// ScheduledMinutes converts schedule-derived in-vehicle minutes into a
// full segment estimate. Schedule data already encodes travel and
// dwell, so only the average wait is added.
func (e *Estimator) ScheduledMinutes(routeType model.RouteType, scheduleMinutes int) int {
	p := e.profile(routeType)

	estimate := scheduleMinutes + int(math.Round(p.AvgWaitMin))
	if estimate < minSegmentMinutes {
		return minSegmentMinutes
	}
	return estimate
}
