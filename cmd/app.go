package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/lineage/internal/config"
	"github.com/papapumpkin/lineage/internal/identity"
	"github.com/papapumpkin/lineage/internal/journal"
	"github.com/papapumpkin/lineage/internal/metrics"
	"github.com/papapumpkin/lineage/internal/referral"
	"github.com/papapumpkin/lineage/internal/telemetry"
	"github.com/papapumpkin/lineage/internal/ui"
)

// app bundles what one command invocation needs. The forest and journal
// are opened lazily by loadForest so growth commands never touch SQLite.
type app struct {
	ctx     context.Context
	cfg     config.Config
	log     *logrus.Logger
	out     *ui.Printer
	met     *metrics.Metrics
	tel     *telemetry.Emitter
	journal *journal.Journal
	forest  *referral.Forest
	command string
}

// openApp loads configuration and builds the app for cmd.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, cmd.CommandPath(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func newApp(ctx context.Context, cfg config.Config, command string, out, errOut io.Writer) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a := &app{
		ctx:     ctx,
		cfg:     cfg,
		log:     newLogger(cfg, errOut),
		out:     ui.New(out, errOut, cfg.JSON),
		met:     metrics.New(),
		command: command,
	}
	if cfg.TelemetryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TelemetryPath), 0o755); err != nil {
			return nil, fmt.Errorf("telemetry: create directory: %w", err)
		}
		tel, err := telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return nil, err
		}
		a.tel = tel
	}
	_ = a.tel.Record(telemetry.KindSessionStart, command, nil)
	return a, nil
}

// newLogger builds the run's logger. --verbose wins over log_level.
func newLogger(cfg config.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	if cfg.Verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return log
}

// loadForest opens the journal and replays it into a fresh forest.
func (a *app) loadForest() (*referral.Forest, error) {
	if a.forest != nil {
		return a.forest, nil
	}
	opts := []journal.Option{journal.WithLogger(a.log)}
	if s := a.tel.Session(); s != "" {
		opts = append(opts, journal.WithSession(s))
	}
	j, err := journal.Open(a.ctx, a.cfg.JournalPath, opts...)
	if err != nil {
		return nil, err
	}
	f := referral.NewForest(referral.WithLogger(a.log))
	n, err := j.Replay(a.ctx, f)
	if err != nil {
		j.Close()
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"journal": a.cfg.JournalPath, "events": n}).Debug("journal replayed")
	a.journal, a.forest = j, f
	return f, nil
}

// register adds address to the forest and journals it when new.
func (a *app) register(address string) (identity.Identity, bool, error) {
	f, err := a.loadForest()
	if err != nil {
		return "", false, err
	}
	id, created, err := f.Register(address)
	if err != nil {
		return "", false, err
	}
	a.met.ObserveRegistration(created)
	if created {
		if err := a.journal.RecordRegister(a.ctx, address); err != nil {
			return "", false, err
		}
	}
	_ = a.tel.Record(telemetry.KindRegister, address, map[string]any{"id": id.String(), "created": created})
	return id, created, nil
}

// refer links referrer to candidate and journals the edge on success.
func (a *app) refer(referrer, candidate string) error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	err = f.CreateReferral(referrer, candidate)
	a.met.ObserveReferral(err)
	data := map[string]any{"referrer": referrer, "candidate": candidate}
	if err != nil {
		data["reason"] = metrics.ReferralOutcome(err)
		_ = a.tel.Record(telemetry.KindReferralRejected, candidate, data)
		return err
	}
	if err := a.journal.RecordReferral(a.ctx, referrer, candidate); err != nil {
		return err
	}
	_ = a.tel.Record(telemetry.KindReferral, candidate, data)
	return nil
}

// close publishes metrics, ends the telemetry session and closes the
// journal. It reports every failure rather than the first.
func (a *app) close() error {
	var errs []error
	if a.forest != nil {
		a.met.ObserveForest(a.forest.Len(), len(a.forest.Roots()))
	}
	if a.cfg.MetricsFile != "" {
		if err := a.met.WriteFile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.tel.Record(telemetry.KindSessionDone, a.command, nil)
	if err := a.tel.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withApp opens the app, runs fn and closes the app, surfacing close
// errors only when fn succeeded.
func withApp(cmd *cobra.Command, fn func(*app) error) (err error) {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
