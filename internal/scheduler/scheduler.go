package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/karooma/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 3 // Simultaneous kit refreshes; keeps marketplace calls bounded
	defaultInterval    = 15 * time.Minute
)

// Curator is the curation capability the scheduler drives.
type Curator interface {
	CurateKit(ctx context.Context, kitID string) (*domain.CurationReport, error)
}

// Config holds scheduler configuration
type Config struct {
	Concurrency        int
	Interval           time.Duration
	EnableDebugLogging bool
}

// Scheduler decides, per kit, when to re-run curation based on the rule
// set's update frequency. Independent kits refresh concurrently under a
// bounded worker pool; refreshes for the same kit are serialized.
type Scheduler struct {
	kits    domain.KitRepository
	curator Curator

	concurrency int
	interval    time.Duration
	debug       bool

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates a scheduler over the given kit repository and curator
func New(kits domain.KitRepository, curator Curator, config Config) *Scheduler {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	interval := config.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Scheduler{
		kits:        kits,
		curator:     curator,
		concurrency: concurrency,
		interval:    interval,
		debug:       config.EnableDebugLogging,
		inFlight:    make(map[string]bool),
	}
}

// DueForRefresh reports whether a kit is due for re-curation at the
// given instant. Manual kits are never auto-due.
func DueForRefresh(kit domain.Kit, now time.Time) bool {
	switch kit.Rules.UpdateFrequency {
	case domain.FrequencyDaily:
		return now.Sub(kit.LastUpdatedAt) >= 24*time.Hour
	case domain.FrequencyWeekly:
		return now.Sub(kit.LastUpdatedAt) >= 7*24*time.Hour
	default:
		return false
	}
}

// NextRefresh returns the next automatic refresh time for a kit. The
// second return is false for manual kits.
func NextRefresh(kit domain.Kit) (time.Time, bool) {
	switch kit.Rules.UpdateFrequency {
	case domain.FrequencyDaily:
		return kit.LastUpdatedAt.Add(24 * time.Hour), true
	case domain.FrequencyWeekly:
		return kit.LastUpdatedAt.Add(7 * 24 * time.Hour), true
	default:
		return time.Time{}, false
	}
}

// Run drives refresh cycles until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[SCHEDULER] running every %s with concurrency %d", s.interval, s.concurrency)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCHEDULER] shutting down: %v", ctx.Err())
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				log.Printf("[SCHEDULER] cycle error: %v", err)
			}
		}
	}
}

// RunOnce refreshes every due kit, at most `concurrency` at a time. A
// single kit's failure is logged, not fatal to the cycle; cancellation
// stops the cycle and discards partial work.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	kits, err := s.kits.ListKits(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, kit := range kits {
		if !s.shouldRefresh(kit, now) {
			continue
		}
		if !s.acquire(kit.ID) {
			continue // refresh for this kit already running
		}

		kitID := kit.ID
		g.Go(func() error {
			defer s.release(kitID)

			report, err := s.curator.CurateKit(gctx, kitID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[SCHEDULER] refresh failed for kit %s: %v", kitID, err)
				return nil
			}
			if s.debug {
				log.Printf("[SCHEDULER] refreshed kit %s: %d products, status=%s",
					kitID, len(report.Products), report.Status)
			}
			return nil
		})
	}

	return g.Wait()
}

// shouldRefresh filters kits worth curating this cycle. Kits in ERROR
// have a configuration problem only an edit can fix; DRAFT kits have
// nothing to resolve yet.
func (s *Scheduler) shouldRefresh(kit domain.Kit, now time.Time) bool {
	if kit.Status == domain.StatusError || kit.Status == domain.StatusDraft {
		return false
	}
	return DueForRefresh(kit, now)
}

func (s *Scheduler) acquire(kitID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[kitID] {
		return false
	}
	s.inFlight[kitID] = true
	return true
}

func (s *Scheduler) release(kitID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, kitID)
}
