package power

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"nathanbeddoewebdev/nodectl/internal/auditlog"
	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/metrics"
	"nathanbeddoewebdev/nodectl/internal/node/backends"
	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/node/engine"
	"nathanbeddoewebdev/nodectl/internal/services/auth"

	"github.com/charmbracelet/huh/spinner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Hooks replaced in tests.
var (
	newStore    = auth.DefaultStore
	openHistory = func() (auditlog.Repository, error) { return auditlog.Open() }

	stdinIsTerminal  = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	stderrIsTerminal = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }
)

// runner executes requests for one command invocation and records each
// outcome in the local history and the metrics textfile. Recording is
// best-effort: a broken history database never fails an action.
type runner struct {
	executor    *engine.Executor
	recorder    *metrics.Recorder
	metricsFile string
	runID       string
	args        string
	log         *logrus.Entry

	mu      sync.Mutex
	history auditlog.Repository
}

func newRunner(cmd *cobra.Command, cfg *config.Config) *runner {
	runID := auditlog.NewRunID()
	log := logrus.WithField("run", runID)

	r := &runner{
		recorder:    metrics.NewRecorder(),
		metricsFile: cfg.MetricsFile,
		runID:       runID,
		args:        commandArgs(cmd),
		log:         log,
	}
	r.executor = engine.New(
		backends.NewOpener(newStore()),
		engine.WithPollInterval(cfg.PollIntervalDuration()),
		engine.WithLogger(log),
	)

	history, err := openHistory()
	if err != nil {
		log.WithError(err).Warn("action history unavailable")
	} else {
		r.history = history
	}
	return r
}

// execute runs req and records its result.
func (r *runner) execute(ctx context.Context, req domain.ActionRequest) domain.ActionResult {
	result := r.executor.Execute(ctx, req)
	r.recorder.Observe(req, result)

	if r.history != nil {
		entry := auditlog.NewEntry(r.runID, req, result)
		entry.Args = r.args

		r.mu.Lock()
		err := r.history.Save(entry)
		r.mu.Unlock()
		if err != nil {
			r.log.WithError(err).Warn("failed to record action history")
		}
	}
	return result
}

// executeWithProgress shows a spinner while a waiting request runs in an
// interactive terminal. The spinner stops with ctx, but the request is
// always seen through so its result is recorded.
func (r *runner) executeWithProgress(ctx context.Context, cmd *cobra.Command, req domain.ActionRequest, text bool) domain.ActionResult {
	if !req.Wait || !text || !stderrIsTerminal() {
		return r.execute(ctx, req)
	}

	var result domain.ActionResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		result = r.execute(ctx, req)
	}()

	err := spinner.New().
		Title(fmt.Sprintf("Waiting for %s to %s...", req.Node.Label(), actionVerb(req.Action))).
		Accessible(os.Getenv("ACCESSIBLE") != "").
		Output(cmd.ErrOrStderr()).
		Context(ctx).
		ActionWithErr(func(context.Context) error {
			<-done
			return nil
		}).
		Run()
	<-done
	if err != nil {
		r.log.WithError(err).Debug("progress spinner stopped")
	}
	return result
}

// Close writes the metrics textfile, when configured, and releases the
// history database.
func (r *runner) Close() {
	if r.metricsFile != "" {
		if err := r.recorder.WriteTextfile(r.metricsFile); err != nil {
			r.log.WithError(err).Warn("failed to write metrics")
		}
	}
	if r.history != nil {
		r.history.Close()
	}
}

// commandArgs renders the command path and explicitly set flags for the
// history.
func commandArgs(cmd *cobra.Command) string {
	parts := append([]string{cmd.CommandPath()}, auditlog.FlagArgs(cmd.Flags())...)
	return strings.Join(parts, " ")
}

func actionVerb(action domain.Action) string {
	return strings.ReplaceAll(action.String(), "_", " ")
}
