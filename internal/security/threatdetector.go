package security

import (
	"sync"
	"time"
)

// Detection thresholds, per spec §4.5. All are per-hour, per-origin unless
// noted otherwise. BruteForceThreshold and BlockDuration are the defaults
// NewThreatDetector falls back to when the operator hasn't overridden them
// (cfg.BruteForceThreshold / cfg.BlockDuration, WithBruteForceThreshold /
// WithBlockDuration below).
const (
	BruteForceThreshold   = 10 // failures of a brute-force-eligible kind
	SuspiciousIPThreshold = 20 // events of any kind
	PatternThreshold      = 5  // repeats of the same (kind, origin) pair

	originLogCapacity = 100
	userLogCapacity   = 50

	DefaultBlockDuration = time.Hour
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// ThreatDetector maintains sliding-window counters per origin and per user
// and assigns a threat level to each security event. It is safe for
// concurrent use; a single mutex guards the three maps, which is sufficient
// at gateway scale (spec §5) and keeps the blocking-decision and the
// counter update atomic with respect to each other.
type ThreatDetector struct {
	mu                  sync.Mutex
	originEvents        map[string]*timeRing
	userFailures        map[string]*timeRing
	patterns            map[patternKey]int
	clock               Clock
	bruteForceThreshold int
	blockDuration       time.Duration
}

type patternKey struct {
	kind   Kind
	origin string
}

// ThreatDetectorOption overrides a ThreatDetector default at construction.
type ThreatDetectorOption func(*ThreatDetector)

// WithBruteForceThreshold overrides the per-hour, per-origin failure count
// (cfg.BruteForceThreshold) that marks an origin as brute-forcing.
func WithBruteForceThreshold(threshold int) ThreatDetectorOption {
	return func(d *ThreatDetector) {
		if threshold > 0 {
			d.bruteForceThreshold = threshold
		}
	}
}

// WithBlockDuration overrides how long ShouldBlock's resulting Block-List
// entry (cfg.BlockDuration) lasts once inserted by Validator.classify.
func WithBlockDuration(duration time.Duration) ThreatDetectorOption {
	return func(d *ThreatDetector) {
		if duration > 0 {
			d.blockDuration = duration
		}
	}
}

// NewThreatDetector constructs a detector using the given clock. Pass
// time.Now for production use and a fixed/fake clock in tests.
func NewThreatDetector(clock Clock, opts ...ThreatDetectorOption) *ThreatDetector {
	if clock == nil {
		clock = time.Now
	}
	d := &ThreatDetector{
		originEvents:        make(map[string]*timeRing),
		userFailures:        make(map[string]*timeRing),
		patterns:            make(map[patternKey]int),
		clock:               clock,
		bruteForceThreshold: BruteForceThreshold,
		blockDuration:       DefaultBlockDuration,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BlockDuration returns the duration ShouldBlock's resulting Block-List
// entry should last, per cfg.BlockDuration.
func (d *ThreatDetector) BlockDuration() time.Duration {
	return d.blockDuration
}

// Evaluate mutates the detector's counters for event and returns the event
// with its Kind possibly reclassified and its Level escalated, per the
// policy in spec §4.5. It never lowers a level the caller already set.
func (d *ThreatDetector) Evaluate(event Event) Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := event.Timestamp
	hourAgo := now.Add(-time.Hour)

	originLog := d.originEvents[event.Origin]
	if originLog == nil {
		originLog = newTimeRing(originLogCapacity)
		d.originEvents[event.Origin] = originLog
	}
	originLog.push(now)

	if event.Subject != "" {
		userLog := d.userFailures[event.Subject]
		if userLog == nil {
			userLog = newTimeRing(userLogCapacity)
			d.userFailures[event.Subject] = userLog
		}
		userLog.push(now)
	}

	key := patternKey{kind: event.Kind, origin: event.Origin}
	d.patterns[key]++
	patternCount := d.patterns[key]

	level := LevelLow

	if IsBruteForceEligible(event.Kind) {
		if originLog.countSince(hourAgo) > d.bruteForceThreshold {
			level = escalate(level, LevelHigh)
			event.Kind = KindBruteForceAttempt
		}
	}

	if originLog.countSince(hourAgo) > SuspiciousIPThreshold {
		level = escalate(level, LevelMedium)
	}

	if patternCount > PatternThreshold {
		level = escalate(level, LevelMedium)
		event.Kind = KindSuspiciousPattern
	}

	if event.Kind == KindInvalidSignature || event.Kind == KindInvalidAlgorithm {
		level = escalate(level, LevelHigh)
	}

	event.Level = escalate(event.Level, level)
	return event
}

// ShouldBlock reports whether origin has exceeded twice the brute-force
// threshold in the last hour and should be added to the Block-List.
func (d *ThreatDetector) ShouldBlock(origin string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := d.originEvents[origin]
	if log == nil {
		return false
	}
	return log.countSince(now.Add(-time.Hour)) > d.bruteForceThreshold*2
}

// Stats summarizes current detector state for the internal statistics
// endpoint (SPEC_FULL §10, supplemented from the original's
// get_security_stats).
type Stats struct {
	EventsLastHour    int
	UniqueOriginsHour int
	TrackedPatterns   int
}

// Stats computes a point-in-time snapshot as of now.
func (d *ThreatDetector) Stats(now time.Time) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	hourAgo := now.Add(-time.Hour)
	var total, unique int
	for _, log := range d.originEvents {
		n := log.countSince(hourAgo)
		total += n
		if n > 0 {
			unique++
		}
	}
	return Stats{
		EventsLastHour:    total,
		UniqueOriginsHour: unique,
		TrackedPatterns:   len(d.patterns),
	}
}

// OriginEventCount returns how many events are on record for origin in the
// last hour as of now. Exposed primarily for tests asserting invariants.
func (d *ThreatDetector) OriginEventCount(origin string, now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	log := d.originEvents[origin]
	if log == nil {
		return 0
	}
	return log.countSince(now.Add(-time.Hour))
}

// OriginLogLen returns the number of entries currently retained for origin
// (bounded by originLogCapacity, spec §8 invariant 4).
func (d *ThreatDetector) OriginLogLen(origin string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	log := d.originEvents[origin]
	if log == nil {
		return 0
	}
	return log.len()
}

// UserLogLen returns the number of entries currently retained for subject
// (bounded by userLogCapacity, spec §8 invariant 4).
func (d *ThreatDetector) UserLogLen(subject string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	log := d.userFailures[subject]
	if log == nil {
		return 0
	}
	return log.len()
}
