// Package compat holds the static compatibility table mapping a probed host
// to the repository revision and package set that can serve its kernel, and
// the resolver that walks it.
package compat

import (
	"fmt"

	"github.com/yairfalse/lustre-client-installer/internal/platform"
)

// Action tells the planner what a matched rule requires.
type Action int

const (
	// ActionProceed installs from the family's default repository.
	ActionProceed Action = iota

	// ActionRewriteRepo pins the repository to RepoToken before installing.
	ActionRewriteRepo

	// ActionReject refuses the combination regardless of kernel.
	ActionReject
)

// Rule is one compatibility table entry. Matching is sequential within a
// family: rules must be ordered hard-rejects first, then most-specific
// kernel series to least, because resolution is range narrowing rather than
// a set lookup.
type Rule struct {
	// Versions is the exact OS version set this rule covers. Empty means
	// any version (combined with VersionMajor when set).
	Versions []string

	// VersionMajor matches any OS version sharing this major component.
	VersionMajor string

	// Arch restricts the rule to one architecture. Empty means any.
	Arch platform.Arch

	// KernelSeries, when set, requires the running kernel to belong to
	// this release series (component-boundary prefix match).
	KernelSeries string

	// KernelMin, when set, requires the running kernel to be at least this
	// version under numeric dot-component ordering.
	KernelMin string

	// Action selects proceed, rewrite-then-proceed, or reject.
	Action Action

	// RepoToken is the repository revision label: the rewrite target for
	// ActionRewriteRepo, informational otherwise.
	RepoToken string

	// Packages is the package set to install for this rule. Ignored for
	// the Debian family, whose package name embeds the running kernel.
	Packages []string

	// Reason documents reject rules.
	Reason string
}

// Table is the process-wide compatibility configuration, keyed by family.
type Table map[platform.DistroFamily][]Rule

// DefaultTable returns the supported distro/version/kernel matrix.
func DefaultTable() Table {
	return Table{
		platform.FamilyAmazon: {
			{
				Versions:  []string{"2023"},
				KernelMin: "6.1",
				Action:    ActionProceed,
				RepoToken: "2023",
				Packages:  []string{"lustre-client"},
			},
			{
				Versions:     []string{"2"},
				KernelSeries: "5.10",
				KernelMin:    "5.10.144-127.601",
				Action:       ActionProceed,
				RepoToken:    "2",
				Packages:     []string{"lustre-client"},
			},
			{
				Versions:     []string{"2"},
				KernelSeries: "5.4",
				KernelMin:    "5.4.214-120.368",
				Action:       ActionProceed,
				RepoToken:    "2",
				Packages:     []string{"lustre-client"},
			},
			{
				Versions:     []string{"2"},
				KernelSeries: "4.14",
				KernelMin:    "4.14.104-95.84",
				Action:       ActionProceed,
				RepoToken:    "2",
				Packages:     []string{"lustre-client"},
			},
			{
				Versions:  []string{"2018.03"},
				KernelMin: "4.14.104-78.84",
				Action:    ActionProceed,
				RepoToken: "1",
				Packages:  []string{"lustre-client"},
			},
		},
		platform.FamilyEnterprise: {
			{
				Versions: []string{"8.2", "8.3"},
				Action:   ActionReject,
				Reason:   "the 8.2 and 8.3 kernel builds ship an incompatible lustre ABI",
			},
			{
				VersionMajor: "7",
				Arch:         platform.ArchAarch64,
				Action:       ActionReject,
				Reason:       "no aarch64 client packages are published for this release line",
			},
			{
				VersionMajor: "7",
				KernelSeries: "3.10.0-1160",
				Action:       ActionProceed,
				RepoToken:    "7.9",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "7",
				KernelSeries: "3.10.0-1127",
				Action:       ActionRewriteRepo,
				RepoToken:    "7.8",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "7",
				KernelSeries: "3.10.0-1062",
				Action:       ActionRewriteRepo,
				RepoToken:    "7.7",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-553",
				Action:       ActionProceed,
				RepoToken:    "8.10",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-513",
				Action:       ActionRewriteRepo,
				RepoToken:    "8.9",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-477",
				Action:       ActionRewriteRepo,
				RepoToken:    "8.8",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-425",
				Action:       ActionRewriteRepo,
				RepoToken:    "8.7",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-372",
				Action:       ActionRewriteRepo,
				RepoToken:    "8.6",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-348",
				Action:       ActionRewriteRepo,
				RepoToken:    "8.5",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "8",
				KernelSeries: "4.18.0-305",
				Action:       ActionRewriteRepo,
				RepoToken:    "8.4",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "9",
				KernelSeries: "5.14.0-427",
				Action:       ActionProceed,
				RepoToken:    "9.4",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "9",
				KernelSeries: "5.14.0-362",
				Action:       ActionRewriteRepo,
				RepoToken:    "9.3",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "9",
				KernelSeries: "5.14.0-284",
				Action:       ActionRewriteRepo,
				RepoToken:    "9.2",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "9",
				KernelSeries: "5.14.0-162",
				Action:       ActionRewriteRepo,
				RepoToken:    "9.1",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
			{
				VersionMajor: "9",
				KernelSeries: "5.14.0-70",
				Action:       ActionRewriteRepo,
				RepoToken:    "9.0",
				Packages:     []string{"kmod-lustre-client", "lustre-client"},
			},
		},
		platform.FamilyDebian: {
			// No kernel constraints here: the planner's repository
			// pre-check decides whether the exact running kernel has a
			// matching lustre-client-modules package.
			{
				Versions:  []string{"18.04"},
				Action:    ActionProceed,
				RepoToken: "bionic",
			},
			{
				Versions:  []string{"20.04"},
				Action:    ActionProceed,
				RepoToken: "focal",
			},
			{
				Versions:  []string{"22.04"},
				Action:    ActionProceed,
				RepoToken: "jammy",
			},
		},
		platform.FamilySUSE: {
			{
				Versions:  []string{"12.5"},
				KernelMin: "4.12.14-120",
				Action:    ActionProceed,
				RepoToken: "SP5",
				Packages:  []string{"lustre-client"},
			},
			{
				Versions:  []string{"12.4"},
				KernelMin: "4.12.14-94.41",
				Action:    ActionRewriteRepo,
				RepoToken: "SP4",
				Packages:  []string{"lustre-client"},
			},
			{
				Versions:  []string{"12.3"},
				KernelMin: "4.4.73-5",
				Action:    ActionRewriteRepo,
				RepoToken: "SP3",
				Packages:  []string{"lustre-client"},
			},
		},
	}
}

// UnsupportedError reports a profile the table cannot serve, including
// explicit hard-rejects.
type UnsupportedError struct {
	Profile platform.Profile
	Reason  string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("unsupported combination: %s", e.Profile)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + " (see the client installation documentation for the supported matrix)"
}

// Resolve finds the first rule satisfied by the profile. Hard-reject rules
// match before kernel refinement, so a rejected version stays rejected even
// when its kernel would satisfy a later threshold.
func (t Table) Resolve(p platform.Profile) (Rule, error) {
	rules, ok := t[p.Family]
	if !ok || len(rules) == 0 {
		return Rule{}, &UnsupportedError{Profile: p, Reason: "distribution family is not supported"}
	}

	for _, r := range rules {
		if !r.matchesVersion(p.OSVersion) {
			continue
		}
		if r.Arch != "" && r.Arch != p.Arch {
			continue
		}
		if r.Action == ActionReject {
			return Rule{}, &UnsupportedError{Profile: p, Reason: r.Reason}
		}
		if r.KernelSeries != "" && !HasSeriesPrefix(p.Kernel, r.KernelSeries) {
			continue
		}
		if r.KernelMin != "" && !AtLeast(p.Kernel, r.KernelMin) {
			continue
		}
		return r, nil
	}

	return Rule{}, &UnsupportedError{Profile: p, Reason: "no compatible client package for this version and kernel"}
}

func (r Rule) matchesVersion(osVersion string) bool {
	for _, v := range r.Versions {
		if v == osVersion {
			return true
		}
	}
	if r.VersionMajor != "" && Major(osVersion) == r.VersionMajor {
		return true
	}
	return len(r.Versions) == 0 && r.VersionMajor == ""
}
