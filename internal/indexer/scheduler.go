package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lendingScope/internal/chain"
)

// Mode selects how long the scheduler runs.
type Mode string

const (
	// ModeContinuous cycles until the context is cancelled.
	ModeContinuous Mode = "continuous"
	// ModeBackfill cycles until a cycle makes no progress, then returns.
	ModeBackfill Mode = "backfill"
)

// ParseMode validates a mode name.
func ParseMode(input string) (Mode, error) {
	switch Mode(input) {
	case ModeContinuous, ModeBackfill:
		return Mode(input), nil
	case "":
		return ModeContinuous, nil
	default:
		return "", fmt.Errorf("unknown mode: %s", input)
	}
}

// State is the scheduler's position within a cycle.
type State string

const (
	StateIdle           State = "idle"
	StateFetchingEvents State = "fetching_events"
	StateAggregating    State = "aggregating"
	StateCommitting     State = "committing"
)

// SchedulerConfig holds scheduling settings.
type SchedulerConfig struct {
	Mode         Mode
	PollInterval time.Duration
}

// CycleStats summarizes one cycle over all groups.
type CycleStats struct {
	Events       int
	Advanced     int
	Malformed    int
	FailedGroups []string
	FailedKinds  int
	Duration     time.Duration
}

// Scheduler runs ingestion cycles over a fixed sequence of groups.
type Scheduler struct {
	cfg      SchedulerConfig
	governor *chain.Governor
	ingestor *Ingestor
	groups   []*Group
	logger   *zap.Logger
	state    State
}

func NewScheduler(cfg SchedulerConfig, governor *chain.Governor, ingestor *Ingestor, groups []*Group, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cfg:      cfg,
		governor: governor,
		ingestor: ingestor,
		groups:   groups,
		logger:   logger,
		state:    StateIdle,
	}
	ingestor.onState = s.setState
	return s
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	return s.state
}

// Run cycles until ctx is cancelled, or in backfill mode until a cycle
// neither advances any stream nor fails.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.ingestor == nil {
		return fmt.Errorf("ingestor is nil")
	}
	if len(s.groups) == 0 {
		return fmt.Errorf("no event groups configured")
	}

	for cycle := 1; ; cycle++ {
		stats := s.RunCycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		failed := stats.FailedKinds > 0 || len(stats.FailedGroups) > 0
		if s.cfg.Mode == ModeBackfill {
			if stats.Advanced == 0 && !failed {
				s.logger.Info("backfill complete", zap.Int("cycles", cycle))
				return nil
			}
			if !failed {
				continue
			}
		}

		timer := time.NewTimer(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle runs every group once, in order. Group failures are logged and do
// not stop the remaining groups.
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	start := time.Now()
	logger := s.logger.With(zap.String("cycle_id", uuid.NewString()))
	s.governor.Reset()

	var stats CycleStats
	for _, g := range s.groups {
		if ctx.Err() != nil {
			break
		}
		groupStart := time.Now()
		gs, err := s.ingestor.RunGroup(ctx, g, logger)
		stats.Events += gs.Events
		stats.Malformed += gs.Malformed
		stats.FailedKinds += len(gs.FailedKinds)
		if err != nil {
			stats.FailedGroups = append(stats.FailedGroups, g.Name)
			logger.Error("group failed, nothing committed",
				zap.String("group", g.Name),
				zap.Int("events", gs.Events),
				zap.Duration("duration", time.Since(groupStart)),
				zap.Error(err),
			)
			s.setState(StateIdle)
			continue
		}
		stats.Advanced += gs.Advanced
		logger.Info("group complete",
			zap.String("group", g.Name),
			zap.Int("events", gs.Events),
			zap.Int("records", gs.Records),
			zap.Int("obligations", gs.Obligations),
			zap.Int("malformed", gs.Malformed),
			zap.Int("failed_kinds", len(gs.FailedKinds)),
			zap.Duration("duration", time.Since(groupStart)),
		)
		s.setState(StateIdle)
	}

	stats.Duration = time.Since(start)
	logger.Info("cycle complete",
		zap.Int("events", stats.Events),
		zap.Int("advanced", stats.Advanced),
		zap.Strings("failed_groups", stats.FailedGroups),
		zap.Duration("duration", stats.Duration),
	)
	return stats
}

func (s *Scheduler) setState(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("state transition", zap.String("from", string(s.state)), zap.String("to", string(state)))
	s.state = state
}
