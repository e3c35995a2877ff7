package telemetry

import (
	"math"
	"math/rand"
)

// ReplayLine is one row of a replay dataset: the subset of Record
// fields a recorded fetch leaves behind. Readings are pointers so
// degraded rows can omit them, the same shape a failed live fetch
// produces.
type ReplayLine struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Windspeed   *float64 `json:"windspeed,omitempty"`
	Status      string   `json:"status"`
	LatencyMS   float64  `json:"latency_ms"`
}

// Generator produces plausible weather rows for seeding replay
// datasets: a bounded random walk over temperature and windspeed with
// an occasional degraded row mixed in.
type Generator struct {
	rng  *rand.Rand
	temp float64
	wind float64
}

// Walk bounds and step sizes. Values drift but never leave the band,
// so a seeded dataset stays plausible no matter how long it is.
const (
	tempMin, tempMax = 12.0, 34.0
	windMin, windMax = 0.0, 28.0
	tempStep         = 0.6
	windStep         = 1.4

	degradedShare = 0.1

	latencyBaseMS     = 35.0
	latencySpreadMS   = 140.0
	latencyDegradedMS = 600.0
)

// NewGenerator returns a generator seeded for reproducible output.
func NewGenerator(seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		rng:  rng,
		temp: 18 + rng.Float64()*8,
		wind: 4 + rng.Float64()*8,
	}
}

// Next advances the walk and returns the next dataset row.
func (g *Generator) Next() ReplayLine {
	g.temp = clamp(g.temp+(g.rng.Float64()*2-1)*tempStep, tempMin, tempMax)
	g.wind = clamp(g.wind+(g.rng.Float64()*2-1)*windStep, windMin, windMax)

	if g.rng.Float64() < degradedShare {
		return ReplayLine{
			Status:    g.degradedStatus(),
			LatencyMS: round1(latencyBaseMS + g.rng.Float64()*latencyDegradedMS),
		}
	}
	return ReplayLine{
		Temperature: FloatPtr(round1(g.temp)),
		Windspeed:   FloatPtr(round1(g.wind)),
		Status:      StatusOK,
		LatencyMS:   round1(latencyBaseMS + g.rng.Float64()*latencySpreadMS),
	}
}

func (g *Generator) degradedStatus() string {
	statuses := []string{
		StatusNoCurrentWeather,
		BadStatus(500),
		BadStatus(429),
		StatusError,
	}
	return statuses[g.rng.Intn(len(statuses))]
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
