// Package installer owns the run's control flow: probe the host, check any
// existing installation, repair or provision, verify, and optionally check
// endpoint reachability.
package installer

import (
	"context"

	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/compat"
	"github.com/yairfalse/lustre-client-installer/internal/executor"
	"github.com/yairfalse/lustre-client-installer/internal/kmod"
	"github.com/yairfalse/lustre-client-installer/internal/logging"
	"github.com/yairfalse/lustre-client-installer/internal/netcheck"
	"github.com/yairfalse/lustre-client-installer/internal/pkgmgr"
	"github.com/yairfalse/lustre-client-installer/internal/plan"
	"github.com/yairfalse/lustre-client-installer/internal/platform"
	"github.com/yairfalse/lustre-client-installer/internal/uninstall"
	"github.com/yairfalse/lustre-client-installer/internal/verify"
)

// Options carries the per-run settings from the CLI and configuration.
type Options struct {
	// DryRun disables every mutating call; planned actions are logged.
	DryRun bool

	// FSxDNSName, when set, enables the post-install reachability check
	// against this endpoint.
	FSxDNSName string

	// Repos locates the vendor repositories.
	Repos plan.RepoConfig
}

// Prober detects the host profile.
type Prober interface {
	Detect() (platform.Profile, error)
}

// Deps are the collaborators the run needs. Zero fields are filled with
// the production implementations; tests inject fakes.
type Deps struct {
	Probe      Prober
	Table      compat.Table
	NewManager func(platform.Profile) (pkgmgr.Manager, error)
	Avail      plan.Availability
	Modules    kmod.Manager
	Verifier   *verify.Verifier
	Reach      *netcheck.Checker
}

// Installer runs the full provisioning flow.
type Installer struct {
	log  *logging.Logger
	opts Options
	deps Deps
}

// New builds an Installer, defaulting any missing collaborator to its
// production implementation.
func New(log *logging.Logger, opts Options, deps Deps) *Installer {
	if deps.Probe == nil {
		deps.Probe = platform.NewDetector()
	}
	if deps.Table == nil {
		deps.Table = compat.DefaultTable()
	}
	if deps.NewManager == nil {
		deps.NewManager = pkgmgr.ForProfile
	}
	if deps.Avail == nil {
		deps.Avail = pkgmgr.NewRepoIndex(opts.Repos.BaseURL)
	}
	if deps.Modules == nil {
		deps.Modules = kmod.New()
	}
	if deps.Verifier == nil {
		deps.Verifier = verify.New(deps.Modules, log)
	}
	if deps.Reach == nil {
		deps.Reach = netcheck.New(deps.Modules, log)
	}
	return &Installer{log: log, opts: opts, deps: deps}
}

// Run executes the flow. All errors are typed per the installer's error
// taxonomy; the caller logs and maps them to the exit code.
func (i *Installer) Run(ctx context.Context) error {
	profile, err := i.deps.Probe.Detect()
	if err != nil {
		return err
	}
	i.log.Info("detected host", zap.String("profile", profile.String()))

	rule, err := i.deps.Table.Resolve(profile)
	if err != nil {
		return err
	}
	i.log.Info("host is supported", zap.String("repo_revision", rule.RepoToken))

	pm, err := i.deps.NewManager(profile)
	if err != nil {
		return err
	}

	// An existing healthy install means there is nothing to do; an
	// existing broken one is removed before re-provisioning.
	if i.deps.Verifier.ToolingInstalled() {
		healthy, err := i.checkExisting(ctx, profile, pm)
		if err != nil {
			return err
		}
		if healthy {
			i.log.Success("client already installed and healthy, nothing to do")
			return i.finish(ctx)
		}
	}

	planner := plan.NewPlanner(i.opts.Repos, i.deps.Avail)
	pl, err := planner.Build(ctx, profile, rule)
	if err != nil {
		return err
	}

	metrics := executor.NewMetrics()
	exec := executor.New(pm, i.log, metrics)
	_, err = exec.Execute(ctx, pl, i.opts.DryRun)
	metrics.LogSummary(i.log)
	if err != nil {
		return err
	}

	report, err := i.verifyPostInstall(ctx)
	if err != nil {
		return err
	}
	if report.Version != "" {
		i.log.Success("client installed and verified", zap.String("module_version", report.Version))
	} else {
		i.log.Success("client installed and verified")
	}

	return i.finish(ctx)
}

// Uninstall removes the client without reinstalling. Exposed as its own
// subcommand.
func (i *Installer) Uninstall(ctx context.Context) error {
	profile, err := i.deps.Probe.Detect()
	if err != nil {
		return err
	}
	pm, err := i.deps.NewManager(profile)
	if err != nil {
		return err
	}
	if err := uninstall.New(pm, i.log).Uninstall(ctx, profile, i.opts.DryRun); err != nil {
		return err
	}
	i.log.Success("client removed")
	return nil
}

// checkExisting verifies the present installation. A healthy one is left
// alone; a broken one is removed so provisioning starts clean. An uninstall
// failure is fatal to the run.
func (i *Installer) checkExisting(ctx context.Context, profile platform.Profile, pm pkgmgr.Manager) (bool, error) {
	i.log.Info("client tooling already present, verifying the existing installation")

	var report verify.Report
	var err error
	if i.opts.DryRun {
		report, err = i.deps.Verifier.VerifyDryRun(ctx)
	} else {
		report, err = i.deps.Verifier.Verify(ctx)
	}
	if err == nil && report.OK() {
		return true, nil
	}

	i.log.Info("existing installation is broken, removing it before reinstalling", zap.Error(err))
	if err := uninstall.New(pm, i.log).Uninstall(ctx, profile, i.opts.DryRun); err != nil {
		return false, err
	}
	return false, nil
}

func (i *Installer) verifyPostInstall(ctx context.Context) (verify.Report, error) {
	if i.opts.DryRun {
		return i.deps.Verifier.VerifyDryRun(ctx)
	}
	return i.deps.Verifier.Verify(ctx)
}

// finish runs the optional reachability stage.
func (i *Installer) finish(ctx context.Context) error {
	if i.opts.FSxDNSName == "" {
		return nil
	}
	if i.opts.DryRun {
		i.log.Info("dry-run: would check reachability of the filesystem endpoint", zap.String("host", i.opts.FSxDNSName))
		return nil
	}
	return i.deps.Reach.Check(ctx, i.opts.FSxDNSName)
}
