package service

import (
	"context"
	"math"
	"sync"
	"time"

	"smart_heating/internal/logger"
	"smart_heating/internal/models"
	"smart_heating/internal/repository"
)

// Learning constants
const (
	learningMinSamples = 5   // minimum samples before using learned rate
	learningMaxSamples = 100 // maximum samples kept per room
	learningRateMin    = 0.3 // minimum valid heating rate °C/h
	learningRateMax    = 5.0 // maximum valid heating rate °C/h
)

// RateLearner predicts a room's heating rate from historical observations,
// weighted by time-of-day and outdoor-temperature similarity. History is
// mirrored to the observation repository after every accepted sample; a
// failing store degrades to in-memory-only learning.
type RateLearner struct {
	repo repository.ObservationRepo
	log  *logger.Logger

	mu   sync.Mutex
	data map[string][]models.HeatingObservation
}

// NewRateLearner builds a learner seeded from the persisted history. A
// corrupt or missing store starts empty.
func NewRateLearner(repo repository.ObservationRepo, log *logger.Logger) *RateLearner {
	l := &RateLearner{
		repo: repo,
		log:  log,
		data: make(map[string][]models.HeatingObservation),
	}
	if repo == nil {
		return l
	}
	loaded, err := repo.LoadAll(context.Background())
	if err != nil {
		if log != nil {
			log.Warnw("learner_load_failed", "err", err)
		}
		return l
	}
	for roomID, samples := range loaded {
		if len(samples) > learningMaxSamples {
			samples = samples[len(samples)-learningMaxSamples:]
		}
		l.data[roomID] = samples
	}
	return l
}

// Record stores one heating-rate observation for a room. Rates outside
// (0.3, 5.0] °C/h are dropped silently: cooling and very slow heating carry
// no signal, and implausibly fast rates are sensor glitches.
func (l *RateLearner) Record(ctx context.Context, roomID string, rate float64, outdoor *float64, hour int, now time.Time) {
	if rate <= learningRateMin || rate > learningRateMax {
		return
	}

	obs := models.HeatingObservation{
		Rate:        math.Round(rate*1000) / 1000,
		OutdoorTemp: outdoor,
		Hour:        hour,
		RecordedAt:  now.UTC(),
	}

	l.mu.Lock()
	l.data[roomID] = append(l.data[roomID], obs)
	if n := len(l.data[roomID]); n > learningMaxSamples {
		l.data[roomID] = l.data[roomID][n-learningMaxSamples:]
	}
	l.mu.Unlock()

	if l.repo == nil {
		return
	}
	// Persist synchronously; failures are logged and swallowed so learning
	// keeps working in memory for the rest of the session.
	if err := l.repo.Append(ctx, roomID, obs); err != nil {
		if l.log != nil {
			l.log.Warnw("learner_persist_failed", "room", roomID, "err", err)
		}
		return
	}
	if err := l.repo.Prune(ctx, roomID, learningMaxSamples); err != nil && l.log != nil {
		l.log.Warnw("learner_prune_failed", "room", roomID, "err", err)
	}
}

// Predict returns the similarity-weighted mean rate for the given
// conditions, or nil while fewer than 5 samples exist for the room.
func (l *RateLearner) Predict(roomID string, outdoor *float64, hour int) *float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	samples := l.data[roomID]
	if len(samples) < learningMinSamples {
		return nil
	}

	weightedSum := 0.0
	weightTotal := 0.0
	for _, s := range samples {
		weight := 1.0

		if samePeriod(hour, s.Hour) {
			weight *= 1.5
		}

		if outdoor != nil && s.OutdoorTemp != nil {
			switch diff := math.Abs(*outdoor - *s.OutdoorTemp); {
			case diff <= 5:
				weight *= 1.5
			case diff <= 10:
				weight *= 1.0
			default:
				weight *= 0.5
			}
		}

		weightedSum += s.Rate * weight
		weightTotal += weight
	}

	if weightTotal <= 0 {
		return nil
	}
	predicted := weightedSum / weightTotal
	return &predicted
}

// Stats returns descriptive statistics over a room's stored samples.
func (l *RateLearner) Stats(roomID string) models.LearningStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	samples := l.data[roomID]
	if len(samples) == 0 {
		return models.LearningStats{}
	}

	sum := 0.0
	minRate := samples[0].Rate
	maxRate := samples[0].Rate
	for _, s := range samples {
		sum += s.Rate
		if s.Rate < minRate {
			minRate = s.Rate
		}
		if s.Rate > maxRate {
			maxRate = s.Rate
		}
	}
	return models.LearningStats{
		Samples: len(samples),
		AvgRate: round2(sum / float64(len(samples))),
		MinRate: round2(minRate),
		MaxRate: round2(maxRate),
	}
}

// SampleCount reports how many samples are stored for a room.
func (l *RateLearner) SampleCount(roomID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data[roomID])
}

// samePeriod reports whether two hours fall in the same time-of-day bucket:
// night (22-6), morning (6-12), afternoon (12-18), evening (18-22).
func samePeriod(h1, h2 int) bool {
	return periodOf(h1) == periodOf(h2)
}

func periodOf(h int) int {
	switch {
	case h >= 6 && h < 12:
		return 1
	case h >= 12 && h < 18:
		return 2
	case h >= 18 && h < 22:
		return 3
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
