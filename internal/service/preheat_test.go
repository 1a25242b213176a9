package service

import (
	"testing"
	"time"
)

func TestEstimateMinutes(t *testing.T) {
	p := PreheatPlanner{SafetyFactor: 1.3, MinPreheatMin: 30}

	f := func(v float64) *float64 { return &v }

	cases := []struct {
		name    string
		current *float64
		target  float64
		rate    *float64
		want    int
	}{
		{"unknown temperature falls back to minimum", nil, 20, f(1.5), 30},
		{"already at target", f(20), 20, f(1.5), 0},
		{"above target", f(22), 20, f(1.5), 0},
		{"3 degrees at 1.5/h with margin", f(17), 20, f(1.5), 156},
		{"3 degrees at fallback rate 1.0", f(17), 20, nil, 234},
		{"zero rate uses fallback", f(17), 20, f(0), 234},
		{"negative rate uses fallback", f(17), 20, f(-0.5), 234},
		{"small delta floors at minimum", f(19.9), 20, f(2.0), 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.EstimateMinutes(tc.current, tc.target, tc.rate); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEstimateMinutes_SafetyFactorScales(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	lean := PreheatPlanner{SafetyFactor: 1.0, MinPreheatMin: 0}
	wide := PreheatPlanner{SafetyFactor: 2.0, MinPreheatMin: 0}

	// 2°C at 1°C/h: 120 raw minutes.
	if got := lean.EstimateMinutes(f(18), 20, f(1.0)); got != 120 {
		t.Fatalf("factor 1.0: got %d, want 120", got)
	}
	if got := wide.EstimateMinutes(f(18), 20, f(1.0)); got != 240 {
		t.Fatalf("factor 2.0: got %d, want 240", got)
	}
}

func TestShouldAnticipate(t *testing.T) {
	p := PreheatPlanner{SafetyFactor: 1.3, MinPreheatMin: 30}
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	in := func(d time.Duration) *ComfortEvent {
		return &ComfortEvent{Summary: "confort", Start: now.Add(d)}
	}

	if p.ShouldAnticipate(nil, 60, now) {
		t.Error("nil event must not anticipate")
	}
	if p.ShouldAnticipate(in(-10*time.Minute), 60, now) {
		t.Error("already-started event must not anticipate")
	}
	if p.ShouldAnticipate(in(90*time.Minute), 60, now) {
		t.Error("event outside the preheat window must not anticipate")
	}
	if !p.ShouldAnticipate(in(45*time.Minute), 60, now) {
		t.Error("event inside the preheat window must anticipate")
	}
	if !p.ShouldAnticipate(in(60*time.Minute), 60, now) {
		t.Error("event exactly at the window edge must anticipate")
	}
}
