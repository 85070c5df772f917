// v1
// calibstore.go
package internal

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrBadHive is returned when a calibration references an impossible hive.
var ErrBadHive = errors.New("hive number must be >= 1")

// ErrUnknownMetric is returned when a calibration offset names a metric the
// pipeline does not produce.
var ErrUnknownMetric = errors.New("unknown metric in calibration offsets")

// CalibrationStore holds calibration profiles behind a RWMutex so HTTP
// handlers can update them while queries read concurrently. The pipeline
// never sees the store itself, only immutable snapshots, which keeps the
// core free of locks and persistence concerns.
type CalibrationStore struct {
	mu       sync.RWMutex
	profiles map[int]CalibrationProfile
}

func NewCalibrationStore() *CalibrationStore {
	return &CalibrationStore{profiles: map[int]CalibrationProfile{}}
}

// Validate checks a profile against the call contract before it is stored.
func (p CalibrationProfile) Validate() error {
	if p.HiveNumber < 1 {
		return fmt.Errorf("%w: %d", ErrBadHive, p.HiveNumber)
	}
	for m := range p.Offsets {
		if _, ok := domainRules[m]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMetric, m)
		}
	}
	return nil
}

// Get returns the profile for one hive, if present.
func (s *CalibrationStore) Get(hive int) (CalibrationProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[hive]
	if ok {
		p = p.deepCopy()
	}
	return p, ok
}

// Set stores a validated profile, replacing any previous one for its hive.
func (s *CalibrationStore) Set(p CalibrationProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[p.HiveNumber] = p.deepCopy()
	s.mu.Unlock()
	return nil
}

// Snapshot produces the immutable per-hive map one pipeline run consumes.
func (s *CalibrationStore) Snapshot() map[int]CalibrationProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]CalibrationProfile, len(s.profiles))
	for h, p := range s.profiles {
		out[h] = p.deepCopy()
	}
	return out
}

// All returns every stored profile ordered by hive number.
func (s *CalibrationStore) All() []CalibrationProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CalibrationProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.deepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HiveNumber < out[j].HiveNumber })
	return out
}

func (p CalibrationProfile) deepCopy() CalibrationProfile {
	out := p
	if p.Offsets != nil {
		out.Offsets = make(map[Metric]float64, len(p.Offsets))
		for m, v := range p.Offsets {
			out.Offsets[m] = v
		}
	}
	if p.AppliedAt != nil {
		t := *p.AppliedAt
		out.AppliedAt = &t
	}
	return out
}
