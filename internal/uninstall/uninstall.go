// Package uninstall removes an existing client installation before
// re-provisioning. Removal is deliberately all-or-nothing: a half-removed
// client can leave the kernel module in an inconsistent state, so any
// failure aborts the run.
package uninstall

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/logging"
	"github.com/yairfalse/lustre-client-installer/internal/pkgmgr"
	"github.com/yairfalse/lustre-client-installer/internal/platform"
)

// FailedError reports that cleanup of a prior install failed. The run stops
// here; no reinstall is attempted over a partially removed client.
type FailedError struct {
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("uninstall failed, not attempting reinstall: %v", e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Coordinator dispatches to the family-specific removal routine.
type Coordinator struct {
	pm  pkgmgr.Manager
	log *logging.Logger
}

// New builds a Coordinator over the family's package manager.
func New(pm pkgmgr.Manager, log *logging.Logger) *Coordinator {
	return &Coordinator{pm: pm, log: log}
}

// Uninstall removes the family's client package set. Under dry-run the
// removal is logged and skipped.
func (c *Coordinator) Uninstall(ctx context.Context, profile platform.Profile, dryRun bool) error {
	packages := PackagesFor(profile)
	if len(packages) == 0 {
		return &FailedError{Err: fmt.Errorf("no removal routine for family %q", profile.Family)}
	}

	if dryRun {
		c.log.Info("dry-run: would remove packages", zap.Strings("packages", packages))
		return nil
	}

	c.log.Info("removing existing client installation", zap.Strings("packages", packages))
	if err := c.pm.Remove(ctx, packages); err != nil {
		return &FailedError{Err: err}
	}
	return nil
}

// PackagesFor returns the family-specific package set to remove. The Amazon
// family needs a distinct set on the exact 2023 release, whose client is a
// single package.
func PackagesFor(profile platform.Profile) []string {
	switch profile.Family {
	case platform.FamilyAmazon:
		if profile.OSVersion == "2023" {
			return []string{"lustre-client"}
		}
		return []string{"lustre-client", "kmod-lustre-client"}
	case platform.FamilyEnterprise:
		return []string{"kmod-lustre-client", "lustre-client"}
	case platform.FamilyDebian:
		return []string{"lustre-client-modules-" + profile.Kernel, "lustre-client-utils"}
	case platform.FamilySUSE:
		return []string{"lustre-client", "lustre-client-kmp-default"}
	}
	return nil
}
