/*
scheduler.go - Holiday load retry scheduler

PURPOSE:
  A failed holiday fetch leaves the index unloaded and every holiday
  query empty. This scheduler periodically retries the load until it
  succeeds, then idles.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips the fetch once the index reports Loaded()
  - Each attempt is bounded by Timeout

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Timeout: Per-attempt fetch timeout (default: 10 seconds)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewHolidayScheduler(index)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - holiday/index.go: Load lifecycle
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/attendance-engine/holiday"
)

// HolidayScheduler retries holiday loading until the index is populated.
type HolidayScheduler struct {
	Index         *holiday.Index
	CheckInterval time.Duration
	Timeout       time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewHolidayScheduler creates a new scheduler.
func NewHolidayScheduler(index *holiday.Index) *HolidayScheduler {
	return &HolidayScheduler{
		Index:         index,
		CheckInterval: 5 * time.Minute,
		Timeout:       10 * time.Second,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (hs *HolidayScheduler) Start() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if hs.ticker != nil {
		return
	}

	hs.ticker = time.NewTicker(hs.CheckInterval)
	hs.stop = make(chan bool)
	hs.wg.Add(1)

	go hs.run(hs.ticker, hs.stop)

	log.Printf("[Scheduler] Started with check interval: %v", hs.CheckInterval)
}

// Stop stops the scheduler.
func (hs *HolidayScheduler) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.ticker != nil {
		hs.ticker.Stop()
		close(hs.stop)
		hs.wg.Wait()
		hs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (hs *HolidayScheduler) run(ticker *time.Ticker, stop <-chan bool) {
	defer hs.wg.Done()

	for {
		select {
		case <-ticker.C:
			hs.CheckAndLoad(context.Background())
		case <-stop:
			return
		}
	}
}

// CheckAndLoad attempts one load if the index is still unloaded and
// reports whether the index is loaded afterwards.
func (hs *HolidayScheduler) CheckAndLoad(ctx context.Context) bool {
	if hs.Index.Loaded() {
		return true
	}

	if hs.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hs.Timeout)
		defer cancel()
	}

	list := hs.Index.Load(ctx)
	if !hs.Index.Loaded() {
		log.Println("[Scheduler] Holiday load still failing, will retry")
		return false
	}
	log.Printf("[Scheduler] Holidays loaded: %d entries", len(list))
	return true
}
