package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/metrics"
	"github.com/hamed0406/statechecker/internal/notify"
	"github.com/hamed0406/statechecker/internal/repo"
)

// TickErrorPrefix starts the error audience message sent for a failed tick.
const TickErrorPrefix = "An Error occured while checking tools: "

type Evaluator interface {
	Evaluate(ctx context.Context, s domain.Subject, now time.Time) (domain.Evaluation, error)
}

type Detector interface {
	Process(ctx context.Context, st repo.StateStore, s domain.Subject, ev domain.Evaluation) (*domain.TransitionEvent, error)
}

// Dispatcher is the subset of *notify.Dispatcher the loop needs.
type Dispatcher interface {
	Send(ctx context.Context, audience notify.Audience, message string) error
	Deliver(ctx context.Context, channels []notify.Channel, audience notify.Audience, message string) error
	StatusDue(tick int) []notify.Channel
}

// BackupScanner refreshes backup subjects from their sources.
type BackupScanner interface {
	Scan(ctx context.Context, store repo.BackupStore) error
}

type Config struct {
	BaseIntervalSeconds    int
	OffsetPercent          float64
	ProbeEveryMinutes      int
	BackupScanEveryMinutes int
	// ProgressEvery logs a progress line every n ticks; 0 disables it.
	ProgressEvery int
	ProbeURLs     []string
}

// State is carried from one tick to the next.
type State struct {
	Tick       int
	LastTickAt time.Time
	LastError  string
}

type Scheduler struct {
	Config     Config
	Logger     *zap.Logger
	Store      repo.Store
	Evaluator  Evaluator
	Detector   Detector
	Dispatcher Dispatcher
	// Scanner is optional; without it backup subjects are only evaluated.
	Scanner BackupScanner
	Metrics metrics.Recorder

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	state    State
	snapshot map[string]domain.Evaluation
}

func New(
	logger *zap.Logger,
	cfg Config,
	store repo.Store,
	evaluator Evaluator,
	detector Detector,
	dispatcher Dispatcher,
) *Scheduler {
	if cfg.BaseIntervalSeconds <= 0 {
		cfg.BaseIntervalSeconds = 60
	}
	if cfg.ProbeEveryMinutes < 1 {
		cfg.ProbeEveryMinutes = 1
	}
	if cfg.BackupScanEveryMinutes < 1 {
		cfg.BackupScanEveryMinutes = 1
	}
	return &Scheduler{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Evaluator:  evaluator,
		Detector:   detector,
		Dispatcher: dispatcher,
		Metrics:    metrics.Noop(),
		Now:        func() time.Time { return time.Now().UTC() },
		Sleep:      sleepContext,
		snapshot:   make(map[string]domain.Evaluation),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run sends the startup summary, then ticks until ctx is cancelled. A
// failing tick is logged and reported; the loop goes on with the next one.
// Cancellation is only observed between ticks.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Logger.Info("scheduler_started",
		zap.Int("base_interval_seconds", s.Config.BaseIntervalSeconds),
		zap.Float64("offset_percent", s.Config.OffsetPercent),
		zap.Int("probe_every", s.Config.ProbeEveryMinutes),
		zap.Int("probes", len(s.Config.ProbeURLs)),
	)
	if err := s.Startup(ctx); err != nil {
		s.reportFailure(ctx, err)
	}

	pause := offsetDuration(s.Config.BaseIntervalSeconds, s.Config.OffsetPercent)
	for {
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.reportFailure(ctx, err)
		}
		if err := s.Sleep(ctx, pause); err != nil {
			s.Logger.Info("scheduler_stopped", zap.Int("tick", s.State().Tick))
			return nil
		}
	}
}

// Startup evaluates every subject and sends the "just (re-)started"
// summary to the info audience on all channels. No flag is changed.
func (s *Scheduler) Startup(ctx context.Context) (err error) {
	defer s.recoverTick(&err)

	evs, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	// Tick 0 is a multiple of every cadence, so this lists each channel
	// with a status summary enabled.
	msg := RenderStatus(StatusInput{
		ProbeEveryMinutes: s.Config.ProbeEveryMinutes,
		JustStarted:       true,
		Cadences:          cadences(s.Dispatcher.StatusDue(0)),
		Evaluations:       evs,
	})
	if err := s.Dispatcher.Send(ctx, notify.AudienceInfo, msg); err != nil {
		s.dispatchFailed(ctx, notify.AudienceInfo, err)
	}
	return nil
}

// Tick runs one iteration: backup scan and probes when due, evaluation
// and transition handling for every due subject, then the status summary
// for channels whose cadence is reached.
func (s *Scheduler) Tick(ctx context.Context) (err error) {
	start := s.Now()
	s.mu.Lock()
	s.state.Tick++
	i := s.state.Tick
	s.mu.Unlock()

	log := s.Logger.With(zap.Int("tick", i), zap.String("run_id", uuid.NewString()))
	defer func() {
		s.Metrics.TickCompleted(ctx, s.Now().Sub(start), err)
		s.mu.Lock()
		s.state.LastTickAt = start
		s.state.LastError = ""
		if err != nil {
			s.state.LastError = err.Error()
		}
		s.mu.Unlock()
	}()
	defer s.recoverTick(&err)

	if s.Config.ProgressEvery > 0 && i%s.Config.ProgressEvery == 0 {
		log.Info("still_checking")
	}

	sess, err := s.Store.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire session: %w", domain.ErrPersistence, err)
	}
	defer sess.Release()

	if s.Scanner != nil && Due(i, s.Config.BackupScanEveryMinutes) {
		if err := s.Scanner.Scan(ctx, sess); err != nil {
			return err
		}
	}

	subjects, err := s.tickSubjects(ctx, sess, i)
	if err != nil {
		return err
	}
	evs, err := s.evaluate(ctx, subjects, start)
	if err != nil {
		return err
	}
	for k, subj := range subjects {
		ev := evs[k]
		event, err := s.Detector.Process(ctx, sess, subj, ev)
		if err != nil {
			return err
		}
		if event == nil {
			continue
		}
		s.Metrics.Transition(ctx, event.Kind, event.Direction)
		if err := s.Dispatcher.Send(ctx, notify.AudienceError, event.Message); err != nil {
			s.dispatchFailed(ctx, notify.AudienceError, err)
		}
		log.Info("transition_dispatched",
			zap.String("kind", string(event.Kind)),
			zap.String("name", event.Name),
			zap.String("direction", string(event.Direction)),
		)
	}

	due := s.Dispatcher.StatusDue(i)
	if len(due) == 0 {
		return nil
	}
	all, err := s.summary(ctx, sess)
	if err != nil {
		return err
	}
	for _, ch := range due {
		msg := RenderStatus(StatusInput{
			ProbeEveryMinutes: s.Config.ProbeEveryMinutes,
			Cadences:          []int{ch.StatusEveryMinutes},
			Evaluations:       all,
		})
		if err := s.Dispatcher.Deliver(ctx, []notify.Channel{ch}, notify.AudienceInfo, msg); err != nil {
			s.dispatchFailed(ctx, notify.AudienceInfo, err)
		}
	}
	log.Debug("status_sent", zap.Int("channels", len(due)))
	return nil
}

// Summary evaluates every subject, probes included, without touching any
// dedup flag.
func (s *Scheduler) Summary(ctx context.Context) ([]domain.Evaluation, error) {
	sess, err := s.Store.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire session: %w", domain.ErrPersistence, err)
	}
	defer sess.Release()
	return s.summary(ctx, sess)
}

func (s *Scheduler) summary(ctx context.Context, st repo.StateStore) ([]domain.Evaluation, error) {
	hbs, err := heartbeatSubjects(ctx, st)
	if err != nil {
		return nil, err
	}
	probes, err := s.probeSubjects(ctx, st)
	if err != nil {
		return nil, err
	}
	backups, err := backupSubjects(ctx, st)
	if err != nil {
		return nil, err
	}
	subjects := append(append(hbs, probes...), backups...)
	return s.evaluate(ctx, subjects, s.Now())
}

// tickSubjects lists heartbeat and backup subjects, plus the probe subjects
// when probes are due on tick i.
func (s *Scheduler) tickSubjects(ctx context.Context, st repo.StateStore, i int) ([]domain.Subject, error) {
	subjects, err := heartbeatSubjects(ctx, st)
	if err != nil {
		return nil, err
	}
	backups, err := backupSubjects(ctx, st)
	if err != nil {
		return nil, err
	}
	subjects = append(subjects, backups...)
	if Due(i, s.Config.ProbeEveryMinutes) {
		probes, err := s.probeSubjects(ctx, st)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, probes...)
	}
	return subjects, nil
}

func heartbeatSubjects(ctx context.Context, st repo.HeartbeatStore) ([]domain.Subject, error) {
	rows, err := st.ListHeartbeatSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list heartbeat subjects: %w", domain.ErrPersistence, err)
	}
	out := make([]domain.Subject, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Subject())
	}
	return out, nil
}

func backupSubjects(ctx context.Context, st repo.BackupStore) ([]domain.Subject, error) {
	rows, err := st.ListBackupSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list backup subjects: %w", domain.ErrPersistence, err)
	}
	out := make([]domain.Subject, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Subject())
	}
	return out, nil
}

// probeSubjects creates missing probe rows as Up and not notified, then
// reads back the stored state of every configured URL.
func (s *Scheduler) probeSubjects(ctx context.Context, st repo.ProbeStore) ([]domain.Subject, error) {
	out := make([]domain.Subject, 0, len(s.Config.ProbeURLs))
	for _, url := range s.Config.ProbeURLs {
		if err := st.UpsertProbeSubjectIfAbsent(ctx, url, domain.StateUp, false); err != nil {
			return nil, fmt.Errorf("%w: create probe subject %q: %w", domain.ErrPersistence, url, err)
		}
		row, err := st.GetProbeSubject(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%w: read probe subject %q: %w", domain.ErrPersistence, url, err)
		}
		out = append(out, row.Subject())
	}
	return out, nil
}

// evaluate runs the evaluator for every subject in order and records the
// results in the snapshot.
func (s *Scheduler) evaluate(ctx context.Context, subjects []domain.Subject, now time.Time) ([]domain.Evaluation, error) {
	evs := make([]domain.Evaluation, 0, len(subjects))
	for _, subj := range subjects {
		ev, err := s.Evaluator.Evaluate(ctx, subj, now)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s %q: %w", subj.Kind, subj.Name, err)
		}
		s.Metrics.Evaluated(ctx, ev.Kind, ev.Up)
		evs = append(evs, ev)
	}

	s.mu.Lock()
	for _, ev := range evs {
		s.snapshot[snapshotKey(ev.Kind, ev.Name)] = ev
	}
	s.mu.Unlock()
	return evs, nil
}

func snapshotKey(kind domain.Kind, name string) string {
	return string(kind) + "/" + name
}

// State returns a copy of the loop state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the latest evaluation of every subject seen so far,
// ordered by kind then name.
func (s *Scheduler) Snapshot() []domain.Evaluation {
	s.mu.RLock()
	out := make([]domain.Evaluation, 0, len(s.snapshot))
	for _, ev := range s.snapshot {
		out = append(out, ev)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if out[a].Kind != out[b].Kind {
			return out[a].Kind < out[b].Kind
		}
		return out[a].Name < out[b].Name
	})
	return out
}

// TickError carries the stack of a failed tick.
type TickError struct {
	Err   error
	Stack []byte
}

func (e *TickError) Error() string { return e.Err.Error() }
func (e *TickError) Unwrap() error { return e.Err }

func (s *Scheduler) recoverTick(errp *error) {
	if r := recover(); r != nil {
		*errp = &TickError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		return
	}
	if *errp != nil {
		var te *TickError
		if !errors.As(*errp, &te) {
			*errp = &TickError{Err: *errp, Stack: debug.Stack()}
		}
	}
}

// reportFailure logs err with its stack and tells the error audience.
func (s *Scheduler) reportFailure(ctx context.Context, err error) {
	var stack []byte
	var te *TickError
	if errors.As(err, &te) {
		stack = te.Stack
	}
	s.Logger.Error("tick_failed",
		zap.Int("tick", s.State().Tick),
		zap.Error(err),
		zap.ByteString("stack", stack),
	)
	msg := TickErrorPrefix + html.EscapeString(err.Error())
	if len(stack) > 0 {
		msg += "\n\n<pre>" + html.EscapeString(string(stack)) + "</pre>"
	}
	if derr := s.Dispatcher.Send(ctx, notify.AudienceError, msg); derr != nil {
		s.dispatchFailed(ctx, notify.AudienceError, derr)
	}
}

func (s *Scheduler) dispatchFailed(ctx context.Context, audience notify.Audience, err error) {
	s.Metrics.DispatchFailed(ctx, string(audience))
	s.Logger.Warn("dispatch_failed", zap.String("audience", string(audience)), zap.Error(err))
}

func cadences(channels []notify.Channel) []int {
	out := make([]int, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.StatusEveryMinutes)
	}
	return out
}
