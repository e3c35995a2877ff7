// Package faults degrades replayed records with synthetic incidents
// so downstream dashboards and alerting can be exercised without a
// real outage.
package faults

import (
	"math/rand"
	"sync"
	"time"

	"pulseops-collector/internal/config"
	"pulseops-collector/internal/metrics"
	"pulseops-collector/internal/telemetry"
)

// Injector applies the active fault profile to records. A fault fires
// either every Nth record or with the configured probability, wipes
// the measured values, swaps the status for an incident status and
// bumps the reported latency.
type Injector struct {
	mu      sync.Mutex
	profile config.FaultProfile
	rng     *rand.Rand
}

// New returns an injector using the given profile. The rng is owned
// by the injector afterwards, pass nil for a time-seeded one.
func New(profile config.FaultProfile, rng *rand.Rand) *Injector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Injector{profile: profile, rng: rng}
}

// SetProfile swaps the active profile. Called from the hot reload
// watcher while the collector loop keeps running.
func (inj *Injector) SetProfile(p config.FaultProfile) {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	inj.profile = p
}

// Toggle flips injection on or off and returns the new state.
func (inj *Injector) Toggle() bool {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	inj.profile.Enabled = !inj.profile.Enabled
	return inj.profile.Enabled
}

// Enabled reports whether injection is currently active.
func (inj *Injector) Enabled() bool {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return inj.profile.Enabled
}

// Apply returns rec degraded when the trigger fires for the given
// record index, or unchanged otherwise. Indexes start at 1 and grow
// monotonically across dataset passes. Periodic hits skip the
// probability draw.
func (inj *Injector) Apply(rec telemetry.Record, index int) telemetry.Record {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	p := inj.profile
	if !p.Enabled {
		return rec
	}
	trigger := (p.EveryN > 0 && index%p.EveryN == 0) || inj.rng.Float64() < p.Probability
	if !trigger {
		return rec
	}

	metrics.FaultsInjected.Inc()
	rec.Temperature = nil
	rec.Windspeed = nil
	if len(p.Statuses) > 0 {
		rec.Status = p.Statuses[inj.rng.Intn(len(p.Statuses))]
	}
	rec.LatencyMS += float64(inj.latencyBump(p))
	return rec
}

func (inj *Injector) latencyBump(p config.FaultProfile) int {
	span := p.LatencyMaxMS - p.LatencyMinMS
	if span <= 0 {
		return p.LatencyMinMS
	}
	return p.LatencyMinMS + inj.rng.Intn(span+1)
}
