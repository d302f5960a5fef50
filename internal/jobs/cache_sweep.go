package jobs

import (
	"log"
	"sync"
	"time"

	"github.com/lukasbauer/samaksh/internal/audiocache"
)

// Sweeper trims the audio cache to a byte budget.
type Sweeper interface {
	Sweep(maxBytes int64) (audiocache.SweepResult, error)
}

// SessionPruner drops idle sessions.
type SessionPruner interface {
	Prune(maxIdle time.Duration) int
}

// CacheSweepJob keeps long-running servers bounded. It runs on a configurable
// interval (default: 10 minutes) and:
// - Removes the least recently written audio when the cache exceeds MaxBytes
// - Drops sessions idle for longer than SessionIdle
// A zero MaxBytes or SessionIdle disables that part.
type CacheSweepJob struct {
	cache       Sweeper
	sessions    SessionPruner
	maxBytes    int64
	sessionIdle time.Duration
	logger      *log.Logger
	interval    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// CacheSweepConfig holds the limits for a CacheSweepJob.
type CacheSweepConfig struct {
	MaxBytes    int64
	SessionIdle time.Duration
	Interval    time.Duration
}

// NewCacheSweepJob creates a new cache sweep job. sessions may be nil.
func NewCacheSweepJob(cache Sweeper, sessions SessionPruner, cfg CacheSweepConfig, logger *log.Logger) *CacheSweepJob {
	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Minute
	}
	return &CacheSweepJob{
		cache:       cache,
		sessions:    sessions,
		maxBytes:    cfg.MaxBytes,
		sessionIdle: cfg.SessionIdle,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Enabled reports whether the job has anything to do.
func (j *CacheSweepJob) Enabled() bool {
	return j.maxBytes > 0 || (j.sessions != nil && j.sessionIdle > 0)
}

// Start begins the background job.
func (j *CacheSweepJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("CacheSweepJob: started (interval=%v, max_bytes=%d, session_idle=%v)", j.interval, j.maxBytes, j.sessionIdle)
}

// Stop gracefully stops the background job.
func (j *CacheSweepJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
	j.logger.Println("CacheSweepJob: stopped")
}

func (j *CacheSweepJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.RunOnce()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep.
func (j *CacheSweepJob) RunOnce() {
	if j.maxBytes > 0 {
		res, err := j.cache.Sweep(j.maxBytes)
		if err != nil {
			j.logger.Printf("CacheSweepJob: sweep failed: %v", err)
		} else if res.Removed > 0 {
			j.logger.Printf("CacheSweepJob: removed %d artifacts (%d bytes freed, %d bytes kept)", res.Removed, res.FreedBytes, res.TotalBytes)
		}
	}

	if j.sessions != nil && j.sessionIdle > 0 {
		if n := j.sessions.Prune(j.sessionIdle); n > 0 {
			j.logger.Printf("CacheSweepJob: pruned %d idle sessions", n)
		}
	}
}
