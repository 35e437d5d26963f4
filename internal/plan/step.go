// Package plan models the ordered provisioning actions derived from a
// resolved compatibility rule, and the planner that builds them.
package plan

import (
	"fmt"
	"strings"
)

// Kind discriminates the step variants.
type Kind int

const (
	AddSigningKey Kind = iota
	AddRepository
	RewriteRepository
	EnableUnsupportedModules
	RefreshCache
	InstallPackages
	CleanCache
)

// Step is one provisioning action. Steps are plain data; the executor
// interprets them against the package-manager collaborator.
type Step struct {
	Kind Kind

	// AddSigningKey / AddRepository
	URL   string
	Label string

	// RewriteRepository
	RepoFile string
	OldToken string
	NewToken string

	// InstallPackages
	Packages []string

	// BestEffort steps still run after an earlier step failed; only
	// cache cleanup is best-effort.
	BestEffort bool
}

// Plan is an ordered step sequence, built once and executed once.
type Plan struct {
	Steps []Step
}

// Name returns the step's short identifier for logs and metrics.
func (s Step) Name() string {
	switch s.Kind {
	case AddSigningKey:
		return "add-signing-key"
	case AddRepository:
		return "add-repository"
	case RewriteRepository:
		return "rewrite-repository"
	case EnableUnsupportedModules:
		return "enable-unsupported-modules"
	case RefreshCache:
		return "refresh-cache"
	case InstallPackages:
		return "install-packages"
	case CleanCache:
		return "clean-cache"
	}
	return fmt.Sprintf("step(%d)", int(s.Kind))
}

// Describe returns the step's exact would-be effect, used verbatim by
// dry-run logging.
func (s Step) Describe() string {
	switch s.Kind {
	case AddSigningKey:
		return "import repository signing key from " + s.URL
	case AddRepository:
		return fmt.Sprintf("add package repository %q from %s", s.Label, s.URL)
	case RewriteRepository:
		return fmt.Sprintf("pin repository %s to revision %q (was %q)", s.RepoFile, s.NewToken, s.OldToken)
	case EnableUnsupportedModules:
		return "allow loading unsupported kernel modules in the module loader configuration"
	case RefreshCache:
		return "refresh the package manager metadata cache"
	case InstallPackages:
		return "install packages: " + strings.Join(s.Packages, ", ")
	case CleanCache:
		return "clean the package manager cache"
	}
	return s.Name()
}

// Mutating reports whether the step changes host state. Every variant does;
// the distinction the executor cares about is BestEffort.
func (s Step) Mutating() bool { return true }
