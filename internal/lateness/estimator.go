// Package lateness turns a pool of historical travel-time samples into the
// probability of missing a fixed deadline for a walk-ride-walk commute.
package lateness

import (
	"errors"
	"sort"

	"gtfs-lateness/internal/gtfs"
)

// ErrNoData reports an empty sample pool.
var ErrNoData = errors.New("no matched trips in corpus")

// Model holds the fixed parts of one commute question, all in seconds.
type Model struct {
	WalkToStopSec   int
	WalkFromStopSec int
	DeadlineSec     int // meeting time, seconds since midnight
}

// Estimator answers lateness questions against a fixed sample pool. Each
// probability is an empirical frequency over historical trips: every sample
// is one equally weighted observation, no smoothing.
type Estimator struct {
	model   Model
	samples []gtfs.MatchedTrip // sorted by origin departure
}

// New copies and orders the samples. The pool is immutable afterwards, so
// one estimator serves any number of probability evaluations.
func New(samples []gtfs.MatchedTrip, m Model) (*Estimator, error) {
	if len(samples) == 0 {
		return nil, ErrNoData
	}
	pool := make([]gtfs.MatchedTrip, len(samples))
	copy(pool, samples)
	sort.Slice(pool, func(i, j int) bool { return pool[i].OriginDepartureSec < pool[j].OriginDepartureSec })
	return &Estimator{model: m, samples: pool}, nil
}

// ProbabilityAt estimates the chance of missing the deadline when leaving
// home at departSec. Only trips departing at or after the walker reaches
// the stop count; with nothing reachable the answer is a certain miss, 1.0.
func (e *Estimator) ProbabilityAt(departSec int) float64 {
	atStop := departSec + e.model.WalkToStopSec
	i := sort.Search(len(e.samples), func(i int) bool {
		return e.samples[i].OriginDepartureSec >= atStop
	})
	reachable := e.samples[i:]
	if len(reachable) == 0 {
		return 1.0
	}
	late := 0
	for _, s := range reachable {
		if s.DestinationArrivalSec+e.model.WalkFromStopSec > e.model.DeadlineSec {
			late++
		}
	}
	return float64(late) / float64(len(reachable))
}

// CurvePoint pairs one home departure time with its lateness probability.
type CurvePoint struct {
	DepartureSec int
	Probability  float64
}

// Curve is the lateness profile over a range of departure times.
type Curve []CurvePoint

// Curve evaluates the probability at each departure, in the given order.
func (e *Estimator) Curve(departures []int) Curve {
	curve := make(Curve, 0, len(departures))
	for _, dep := range departures {
		curve = append(curve, CurvePoint{DepartureSec: dep, Probability: e.ProbabilityAt(dep)})
	}
	return curve
}

// Departures expands an inclusive from/to range into concrete departure
// times stepSec apart. The upper bound is included only when the step
// lands on it.
func Departures(fromSec, toSec, stepSec int) []int {
	var out []int
	for t := fromSec; t <= toSec; t += stepSec {
		out = append(out, t)
	}
	return out
}
