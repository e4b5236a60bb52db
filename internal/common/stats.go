package common

import (
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for evaluation telemetry.
type Stats struct {
	PointsEvaluated uint64 // Grid points passed through the model
	ModelCalls      uint64 // Calls into the model routine (one per chunk)
	BytesRead       uint64 // Bytes read from index sources
	LastRunLatency  uint64 // Wall time of the last run in nanoseconds

	running atomic.Bool
	stopCh  chan struct{}
	silent  bool

	lastPoints uint64
	lastTime   time.Time
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// AddPoints atomically increments the evaluated point counter
func (s *Stats) AddPoints(count uint64) {
	atomic.AddUint64(&s.PointsEvaluated, count)
}

// AddCalls atomically increments the model call counter
func (s *Stats) AddCalls(count uint64) {
	atomic.AddUint64(&s.ModelCalls, count)
}

// AddBytes atomically increments the bytes read counter
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.BytesRead, count)
}

// SetRunLatency atomically stores the last run latency
func (s *Stats) SetRunLatency(d time.Duration) {
	atomic.StoreUint64(&s.LastRunLatency, uint64(d.Nanoseconds()))
}

// GetPoints atomically reads the evaluated point counter
func (s *Stats) GetPoints() uint64 {
	return atomic.LoadUint64(&s.PointsEvaluated)
}

// GetCalls atomically reads the model call counter
func (s *Stats) GetCalls() uint64 {
	return atomic.LoadUint64(&s.ModelCalls)
}

// GetBytes atomically reads the bytes read counter
func (s *Stats) GetBytes() uint64 {
	return atomic.LoadUint64(&s.BytesRead)
}

// GetRunLatency atomically reads the last run latency
func (s *Stats) GetRunLatency() time.Duration {
	return time.Duration(atomic.LoadUint64(&s.LastRunLatency))
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that logs throughput
// every interval until StopReporter is called.
func (s *Stats) StartReporter(interval time.Duration) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.lastTime = time.Now()
	s.lastPoints = s.GetPoints()
	s.stopCh = make(chan struct{})

	go s.reporterLoop(interval, s.stopCh)
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
}

func (s *Stats) reporterLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	current := s.GetPoints()
	kpps := float64(current-s.lastPoints) / 1000 / elapsed

	Infof("[Progress] Eval: %.2f kpoints/s | Calls: %d | Total: %d points",
		kpps, s.GetCalls(), current)

	s.lastPoints = current
	s.lastTime = now
}

// Reset resets all counters
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.PointsEvaluated, 0)
	atomic.StoreUint64(&s.ModelCalls, 0)
	atomic.StoreUint64(&s.BytesRead, 0)
	atomic.StoreUint64(&s.LastRunLatency, 0)
	s.lastPoints = 0
	s.lastTime = time.Now()
}
