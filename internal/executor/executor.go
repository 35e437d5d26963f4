// Package executor runs a provisioning plan against the package-manager
// collaborator, honoring dry-run mode and failing fast on the first fatal
// step.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/logging"
	"github.com/yairfalse/lustre-client-installer/internal/pkgmgr"
	"github.com/yairfalse/lustre-client-installer/internal/plan"
)

// Status is a per-step outcome.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
	StatusDryRun
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusDryRun:
		return "dry-run"
	}
	return "unknown"
}

// StepResult records one step's outcome.
type StepResult struct {
	Step     plan.Step
	Status   Status
	Err      error
	Duration time.Duration
}

// Result is the aggregate outcome owned by the executor.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step failed.
func (r Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// InstallationFailedError reports a failed mutating plan step. Re-running
// the installer is the documented recovery path.
type InstallationFailedError struct {
	Step string
	Err  error
}

func (e *InstallationFailedError) Error() string {
	return fmt.Sprintf("installation failed at step %s: %v (fix the underlying problem and re-run the installer)", e.Step, e.Err)
}

func (e *InstallationFailedError) Unwrap() error { return e.Err }

// Executor interprets plan steps against the collaborators.
type Executor struct {
	pm      pkgmgr.Manager
	log     *logging.Logger
	metrics *Metrics
}

// New builds an Executor. The metrics recorder may be nil.
func New(pm pkgmgr.Manager, log *logging.Logger, metrics *Metrics) *Executor {
	return &Executor{pm: pm, log: log, metrics: metrics}
}

// Execute runs the plan in order. In dry-run mode every step is logged with
// its would-be effect and no collaborator call is made. In live mode a step
// failure skips all remaining mutating steps; best-effort cache cleanup is
// still attempted. The returned error is an *InstallationFailedError when
// any step failed.
func (e *Executor) Execute(ctx context.Context, p plan.Plan, dryRun bool) (Result, error) {
	var result Result
	var firstErr *InstallationFailedError

	for _, step := range p.Steps {
		if dryRun {
			e.log.Info("dry-run: "+step.Describe(), zap.String("step", step.Name()))
			result.Steps = append(result.Steps, StepResult{Step: step, Status: StatusDryRun})
			continue
		}

		if firstErr != nil && !step.BestEffort {
			result.Steps = append(result.Steps, StepResult{Step: step, Status: StatusSkipped})
			continue
		}

		e.log.Info(step.Describe(), zap.String("step", step.Name()))
		start := time.Now()
		err := e.runStep(ctx, step)
		elapsed := time.Since(start)

		if e.metrics != nil {
			e.metrics.Record(step.Name(), elapsed, err)
		}

		if err != nil {
			if step.BestEffort {
				e.log.Info("cache cleanup failed, continuing", zap.Error(err))
				result.Steps = append(result.Steps, StepResult{Step: step, Status: StatusFailed, Err: err, Duration: elapsed})
				continue
			}
			e.log.Error("step failed", zap.String("step", step.Name()), zap.Error(err))
			result.Steps = append(result.Steps, StepResult{Step: step, Status: StatusFailed, Err: err, Duration: elapsed})
			firstErr = &InstallationFailedError{Step: step.Name(), Err: err}
			continue
		}

		result.Steps = append(result.Steps, StepResult{Step: step, Status: StatusSucceeded, Duration: elapsed})
	}

	if firstErr != nil {
		return result, firstErr
	}
	return result, nil
}

func (e *Executor) runStep(ctx context.Context, step plan.Step) error {
	switch step.Kind {
	case plan.AddSigningKey:
		return e.pm.AddSigningKey(ctx, step.URL)
	case plan.AddRepository:
		return e.pm.AddRepository(ctx, step.URL, step.Label)
	case plan.RewriteRepository:
		return e.pm.RewriteRepositoryRevision(ctx, step.RepoFile, step.OldToken, step.NewToken)
	case plan.EnableUnsupportedModules:
		hc, ok := e.pm.(pkgmgr.HostConfigurator)
		if !ok {
			return fmt.Errorf("package manager cannot configure unsupported kernel modules")
		}
		return hc.EnableUnsupportedModules(ctx)
	case plan.RefreshCache:
		return e.pm.RefreshCache(ctx)
	case plan.InstallPackages:
		return e.pm.Install(ctx, step.Packages)
	case plan.CleanCache:
		return e.pm.CleanCache(ctx)
	}
	return fmt.Errorf("unknown step kind %d", int(step.Kind))
}
