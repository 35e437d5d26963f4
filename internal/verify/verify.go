// Package verify confirms post-install state: client tooling on the PATH,
// the kernel module loaded, and module metadata retrievable.
package verify

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/kmod"
	"github.com/yairfalse/lustre-client-installer/internal/logging"
)

const (
	// ClientBinary is the userland tool the client packages install.
	ClientBinary = "lfs"

	// ClientModule is the filesystem kernel module.
	ClientModule = "lustre"
)

// Report is the outcome of one verification pass. Derived fresh every
// check, never persisted.
type Report struct {
	ToolingPresent      bool
	ModuleLoaded        bool
	ModuleInfoAvailable bool
	Version             string
}

// OK reports a fully healthy installation.
func (r Report) OK() bool {
	return r.ToolingPresent && r.ModuleLoaded && r.ModuleInfoAvailable
}

// Error reports a verification pass that did not fully succeed.
type Error struct {
	Report Report
	Reason string
}

func (e *Error) Error() string {
	return "installation verification failed: " + e.Reason
}

// Verifier checks an installation.
type Verifier struct {
	modules  kmod.Manager
	lookPath func(file string) (string, error)
	log      *logging.Logger
}

// New builds a Verifier over the host module manager.
func New(modules kmod.Manager, log *logging.Logger) *Verifier {
	return &Verifier{modules: modules, lookPath: exec.LookPath, log: log}
}

// NewWithLookPath builds a Verifier with an explicit PATH lookup. For tests.
func NewWithLookPath(modules kmod.Manager, lookPath func(string) (string, error), log *logging.Logger) *Verifier {
	return &Verifier{modules: modules, lookPath: lookPath, log: log}
}

// Verify runs the verification steps in order. The kernel module is loaded
// on demand; a load failure is fatal to verification. Under dry-run no
// module load is attempted and the loaded/metadata checks are assumed, so
// a dry run never mutates module state.
func (v *Verifier) Verify(ctx context.Context) (Report, error) {
	return v.verify(ctx, false)
}

// VerifyDryRun is Verify without the module-load mutation.
func (v *Verifier) VerifyDryRun(ctx context.Context) (Report, error) {
	return v.verify(ctx, true)
}

func (v *Verifier) verify(ctx context.Context, dryRun bool) (Report, error) {
	var report Report

	if _, err := v.lookPath(ClientBinary); err == nil {
		report.ToolingPresent = true
	} else {
		v.log.Error("client tooling not found on PATH", zap.String("binary", ClientBinary))
		if dryRun {
			return report, nil
		}
		return report, &Error{Report: report, Reason: fmt.Sprintf("%s not found on PATH", ClientBinary)}
	}

	loaded, err := v.modules.Loaded(ctx, ClientModule)
	if err != nil {
		return report, &Error{Report: report, Reason: err.Error()}
	}
	if !loaded {
		if dryRun {
			v.log.Info("dry-run: would load kernel module", zap.String("module", ClientModule))
			report.ModuleLoaded = true
			report.ModuleInfoAvailable = true
			return report, nil
		}
		v.log.Info("kernel module not loaded, loading it", zap.String("module", ClientModule))
		if err := v.modules.Load(ctx, ClientModule); err != nil {
			return report, &Error{Report: report, Reason: fmt.Sprintf("loading %s: %v", ClientModule, err)}
		}
	}
	report.ModuleLoaded = true

	version, err := v.modules.Info(ctx, ClientModule)
	if err != nil {
		// Missing metadata is reportable but does not undo the install.
		v.log.Error("module metadata not retrievable", zap.String("module", ClientModule), zap.Error(err))
		return report, &Error{Report: report, Reason: fmt.Sprintf("modinfo %s: %v", ClientModule, err)}
	}
	report.ModuleInfoAvailable = true
	report.Version = version

	return report, nil
}

// ToolingInstalled reports whether the client userland is already present,
// without touching module state. The orchestrator uses it to decide between
// the fresh-install and repair paths.
func (v *Verifier) ToolingInstalled() bool {
	_, err := v.lookPath(ClientBinary)
	return err == nil
}
