package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/metrics"
	"github.com/oshokin/wake-me-up/internal/platform"
	"github.com/oshokin/wake-me-up/internal/position"
	"github.com/oshokin/wake-me-up/internal/repository/state"
	"github.com/oshokin/wake-me-up/internal/service/server"
	"github.com/oshokin/wake-me-up/internal/tracking"
	"github.com/oshokin/wake-me-up/internal/tui"
)

// Session outcomes recorded besides tracking.EndReason values.
const (
	outcomeBlocked = "blocked"
	outcomeFailed  = "failed"
)

// tracker owns one session and everything serving it.
type tracker struct {
	cfg      *config.Config
	opts     *Options
	gate     *position.Gate
	session  *tracking.Session
	feed     *tui.Feed
	states   *state.FileRepository
	settings *platform.SettingsLauncher
}

func newTracker(
	cfg *config.Config,
	opts *Options,
	destination *geofence.Location,
	gate *position.Gate,
	deps tracking.Dependencies,
) (*tracker, error) {
	t := &tracker{
		cfg:      cfg,
		opts:     opts,
		gate:     gate,
		states:   state.NewFileRepository(cfg.StateFile),
		settings: platform.NewSettingsLauncher(settingsPath(opts.ConfigPath)),
	}

	observers := []tracking.Observer{newTransitionLog().observe}
	if !opts.Headless {
		t.feed = tui.NewFeed()
		observers = append(observers, t.feed.Observe)
	}

	session, err := tracking.New(destination, deps, sessionOptions(cfg.Tracking, observers...)...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	t.session = session

	return t, nil
}

// run serves the session until it ends, then tears everything down.
func (t *tracker) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	errs := make(chan error, 2)

	background := func(name string, serve func(context.Context) error) {
		wg.Go(func() {
			if err := serve(ctx); err != nil {
				logger.ErrorKV(ctx, "Background server failed", "server", name, "error", err)
				errs <- fmt.Errorf("%s: %w", name, err)

				cancel()
			}
		})
	}

	background("control server", func(ctx context.Context) error {
		return server.Run(ctx, &server.Options{
			ConfigAddress: t.cfg.ControlAddress,
			ListenAddress: t.opts.ListenAddress,
			Service:       t.session,
		})
	})

	if t.cfg.MetricsAddress != "" {
		background("metrics server", func(ctx context.Context) error {
			registry := metrics.NewRegistry(t.session.Status)
			return metrics.Serve(ctx, t.cfg.MetricsAddress, metrics.Handler(registry))
		})
	}

	wg.Go(func() {
		t.arm(ctx)
	})

	err := t.present(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), t.cfg.Timeout)
	defer stopCancel()

	if stopErr := t.session.Stop(stopCtx); stopErr != nil {
		logger.WarnKV(ctx, "Unable to stop the session", "error", stopErr)
	}

	cancel()
	wg.Wait()
	close(errs)

	for serveErr := range errs {
		err = errors.Join(err, serveErr)
	}

	t.record(context.WithoutCancel(ctx), err)

	return err
}

// arm requests location access and starts the session. While access is
// blocked it re-reads the settings on every recheck interval, the way a
// mobile app re-checks when it returns to the foreground.
func (t *tracker) arm(ctx context.Context) {
	permission, err := t.gate.RequestPermission(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Permission request failed", "error", err)
	}

	logger.InfoKV(ctx, "Location permission", "permission", permission.String())

	ticker := time.NewTicker(t.cfg.Tracking.PermissionRecheckInterval)
	defer ticker.Stop()

	for {
		err = t.session.Start(ctx)

		switch {
		case err == nil:
			return
		case errors.Is(err, tracking.ErrSessionClosed), errors.Is(err, tracking.ErrAlreadyStarted):
			return
		case isBlocked(err):
			logger.DebugKV(ctx, "Waiting for location access", "error", err)
		default:
			logger.ErrorKV(ctx, "Unable to start tracking", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.session.Done():
			return
		case <-ticker.C:
			t.recheck(ctx)
		}
	}
}

// recheck applies permission and service changes made in the settings file.
// A "not determined" permission leaves an earlier prompt answer in place.
func (t *tracker) recheck(ctx context.Context) {
	cfg, err := config.Load(t.opts.ConfigPath)
	if err != nil {
		logger.WarnKV(ctx, "Unable to reload settings", "error", err)
		return
	}

	permission, err := cfg.Position.PermissionState()
	if err != nil {
		logger.WarnKV(ctx, "Unable to parse permission", "error", err)
		return
	}

	if permission != geofence.PermissionNotDetermined {
		t.gate.SetPermission(permission)
	}

	t.gate.SetServiceEnabled(cfg.Position.ServiceEnabled)
}

// present shows the session until it ends or the user quits.
func (t *tracker) present(ctx context.Context) error {
	if t.opts.Headless {
		select {
		case <-ctx.Done():
		case <-t.session.Done():
		}

		return nil
	}

	closeLog, err := logger.RedirectToFile(t.cfg.LogFile)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closeLog(); closeErr != nil {
			logger.WarnKV(ctx, "Unable to close log file", "error", closeErr)
		}
	}()

	return tui.Run(ctx, t.session, t.feed, tui.Options{
		SnoozeDuration: t.cfg.Tracking.SnoozeDuration,
		OpenSettings: func() error {
			return t.openSettings(ctx)
		},
	})
}

// openSettings makes sure the settings file exists and opens it.
func (t *tracker) openSettings(ctx context.Context) error {
	if _, err := config.Init(t.opts.ConfigPath, false); err != nil {
		return err
	}

	return t.settings.OpenSettings(ctx)
}

// record saves the summary shown by `wakemeup status` after the tracker exits.
func (t *tracker) record(ctx context.Context, runErr error) {
	s := t.session.Status()

	outcome := string(s.EndReason)

	switch {
	case runErr != nil:
		outcome = outcomeFailed
	case s.StartedAt.IsZero() && s.Condition.Blocking():
		outcome = outcomeBlocked
	}

	err := t.states.Update(ctx, func(st *state.AppState) {
		st.LastSession = &state.SessionRecord{
			LocationID:   s.LocationID,
			LocationName: s.LocationName,
			StartedAt:    s.StartedAt,
			TriggeredAt:  s.TriggeredAt,
			EndedAt:      time.Now(),
			Triggers:     s.Triggers,
			Outcome:      outcome,
		}
	})
	if err != nil {
		logger.WarnKV(ctx, "Unable to save session summary", "error", err)
		return
	}

	logger.InfoKV(ctx, "Session finished", "outcome", outcome, "triggers", s.Triggers)
}

func isBlocked(err error) bool {
	_, ok := geofence.AsBlocked(err)
	return ok
}

// settingsPath is the file the settings launcher opens.
func settingsPath(configPath string) string {
	if configPath != "" {
		return configPath
	}

	return config.DefaultPath()
}

// transitionLog logs state and condition changes of a session.
type transitionLog struct {
	mu        sync.Mutex
	state     geofence.SessionState
	condition geofence.Condition
}

func newTransitionLog() *transitionLog {
	return &transitionLog{}
}

func (l *transitionLog) observe(s tracking.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx := logger.WithName(context.Background(), "tracker")

	if s.State != l.state {
		logger.InfoKV(ctx, "Session state changed",
			"from", l.state.String(),
			"to", s.State.String(),
			"distance", s.DistanceText())

		l.state = s.State
	}

	if s.Condition != l.condition {
		if message := s.Condition.Message(); message != "" {
			logger.WarnKV(ctx, message, "condition", s.Condition.String())
		}

		l.condition = s.Condition
	}

	if s.LastDistanceMeters != nil {
		logger.DebugKV(ctx, "Distance to destination", "distance", s.DistanceText())
	}
}
