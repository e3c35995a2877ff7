package telemetry

import "testing"

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(42)
	b := NewGenerator(42)
	for i := 0; i < 50; i++ {
		ra, rb := a.Next(), b.Next()
		if ra.Status != rb.Status || ra.LatencyMS != rb.LatencyMS {
			t.Fatalf("row %d diverged: %+v vs %+v", i, ra, rb)
		}
		if (ra.Temperature == nil) != (rb.Temperature == nil) {
			t.Fatalf("row %d reading presence diverged", i)
		}
		if ra.Temperature != nil && *ra.Temperature != *rb.Temperature {
			t.Fatalf("row %d temperature diverged: %v vs %v", i, *ra.Temperature, *rb.Temperature)
		}
	}
}

func TestGeneratorStaysInBounds(t *testing.T) {
	g := NewGenerator(7)
	for i := 0; i < 500; i++ {
		row := g.Next()
		if row.Temperature != nil && (*row.Temperature < tempMin || *row.Temperature > tempMax) {
			t.Fatalf("temperature %v escaped bounds", *row.Temperature)
		}
		if row.Windspeed != nil && (*row.Windspeed < windMin || *row.Windspeed > windMax) {
			t.Fatalf("windspeed %v escaped bounds", *row.Windspeed)
		}
		if row.LatencyMS < 0 {
			t.Fatalf("negative latency %v", row.LatencyMS)
		}
	}
}

func TestGeneratorMixesStatuses(t *testing.T) {
	g := NewGenerator(1)
	healthy, degraded := 0, 0
	for i := 0; i < 200; i++ {
		row := g.Next()
		if row.Status == StatusOK {
			if row.Temperature == nil || row.Windspeed == nil {
				t.Fatal("healthy row missing readings")
			}
			healthy++
			continue
		}
		if row.Temperature != nil || row.Windspeed != nil {
			t.Fatalf("degraded row %q kept readings", row.Status)
		}
		degraded++
	}
	if healthy == 0 || degraded == 0 {
		t.Fatalf("expected a status mix, got healthy=%d degraded=%d", healthy, degraded)
	}
	if degraded > healthy {
		t.Fatalf("dataset mostly degraded: healthy=%d degraded=%d", healthy, degraded)
	}
}
