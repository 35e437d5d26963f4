package plan

import (
	"context"
	"fmt"

	"github.com/yairfalse/lustre-client-installer/internal/compat"
	"github.com/yairfalse/lustre-client-installer/internal/platform"
)

// RepoConfig locates the vendor package repositories. Values are
// overridable through the installer configuration file.
type RepoConfig struct {
	// BaseURL serves the package repositories themselves.
	BaseURL string

	// KeyBaseURL serves the repository signing keys.
	KeyBaseURL string
}

// DefaultRepoConfig returns the vendor's public repository endpoints.
func DefaultRepoConfig() RepoConfig {
	return RepoConfig{
		BaseURL:    "https://fsx-lustre-client-repo.s3.amazonaws.com",
		KeyBaseURL: "https://fsx-lustre-client-repo-public-keys.s3.amazonaws.com",
	}
}

// Availability answers whether the vendor repository carries a package.
// The Debian family's package name embeds the exact running kernel, so the
// planner refuses to plan an install that is known to fail.
type Availability interface {
	HasPackage(ctx context.Context, repoToken, name string, arch platform.Arch) (bool, error)
}

// NoMatchingPackageError reports that no client package exists for the
// exact running kernel.
type NoMatchingPackageError struct {
	Kernel  string
	Package string
}

func (e *NoMatchingPackageError) Error() string {
	return fmt.Sprintf("no package %q found in the client repository for kernel %s", e.Package, e.Kernel)
}

const (
	yumRepoFile    = "/etc/yum.repos.d/aws-fsx.repo"
	zypperRepoFile = "/etc/zypp/repos.d/aws-fsx.repo"
	repoLabel      = "aws-fsx"
)

// Planner turns a profile plus its resolved rule into an ordered Plan.
type Planner struct {
	repos RepoConfig
	avail Availability
}

// NewPlanner builds a Planner. avail may be nil when the Debian family is
// not in play (tests exercising other families).
func NewPlanner(repos RepoConfig, avail Availability) *Planner {
	return &Planner{repos: repos, avail: avail}
}

// Build produces the provisioning plan for the profile under rule. The rule
// must have come from Resolve on the same profile.
func (p *Planner) Build(ctx context.Context, profile platform.Profile, rule compat.Rule) (Plan, error) {
	switch profile.Family {
	case platform.FamilyAmazon:
		return p.amazonPlan(rule), nil
	case platform.FamilyEnterprise:
		return p.enterprisePlan(profile, rule), nil
	case platform.FamilySUSE:
		return p.susePlan(rule), nil
	case platform.FamilyDebian:
		return p.debianPlan(ctx, profile, rule)
	}
	return Plan{}, fmt.Errorf("no provisioning path for family %q", profile.Family)
}

// amazonPlan needs no extra repository: the client ships in the
// distribution's own channels (an extras topic on older releases).
func (p *Planner) amazonPlan(rule compat.Rule) Plan {
	return Plan{Steps: []Step{
		{Kind: RefreshCache},
		{Kind: InstallPackages, Packages: rule.Packages},
		{Kind: CleanCache, BestEffort: true},
	}}
}

func (p *Planner) enterprisePlan(profile platform.Profile, rule compat.Rule) Plan {
	major := compat.Major(profile.OSVersion)
	steps := []Step{
		{Kind: AddSigningKey, URL: p.repos.KeyBaseURL + "/fsx-rpm-public-key.asc"},
		{Kind: AddRepository, URL: fmt.Sprintf("%s/el/%s/fsx-lustre-client.repo", p.repos.BaseURL, major), Label: repoLabel},
	}
	if rule.Action == compat.ActionRewriteRepo {
		steps = append(steps, Step{
			Kind:     RewriteRepository,
			RepoFile: yumRepoFile,
			OldToken: "el/" + major,
			NewToken: "el/" + rule.RepoToken,
		})
	}
	steps = append(steps,
		Step{Kind: RefreshCache},
		Step{Kind: InstallPackages, Packages: rule.Packages},
		Step{Kind: CleanCache, BestEffort: true},
	)
	return Plan{Steps: steps}
}

// susePlan starts by allowing unsupported kernel modules: without that the
// installed module would never load on SLES.
func (p *Planner) susePlan(rule compat.Rule) Plan {
	steps := []Step{
		{Kind: EnableUnsupportedModules},
		{Kind: AddSigningKey, URL: p.repos.KeyBaseURL + "/fsx-sles-public-key.asc"},
		{Kind: AddRepository, URL: p.repos.BaseURL + "/suse/sles-12/SP5", Label: repoLabel},
	}
	if rule.Action == compat.ActionRewriteRepo {
		steps = append(steps, Step{
			Kind:     RewriteRepository,
			RepoFile: zypperRepoFile,
			OldToken: "SP5",
			NewToken: rule.RepoToken,
		})
	}
	steps = append(steps,
		Step{Kind: RefreshCache},
		Step{Kind: InstallPackages, Packages: rule.Packages},
		Step{Kind: CleanCache, BestEffort: true},
	)
	return Plan{Steps: steps}
}

// debianPlan installs lustre-client-modules-<kernel>, which only exists for
// kernels the repository was built against, so it checks the repository
// index first and fails planning when the running kernel has no package.
func (p *Planner) debianPlan(ctx context.Context, profile platform.Profile, rule compat.Rule) (Plan, error) {
	pkg := "lustre-client-modules-" + profile.Kernel

	if p.avail == nil {
		return Plan{}, fmt.Errorf("no repository availability checker configured for the %s family", profile.Family)
	}
	ok, err := p.avail.HasPackage(ctx, rule.RepoToken, pkg, profile.Arch)
	if err != nil {
		return Plan{}, fmt.Errorf("checking repository for %s: %w", pkg, err)
	}
	if !ok {
		return Plan{}, &NoMatchingPackageError{Kernel: profile.Kernel, Package: pkg}
	}

	return Plan{Steps: []Step{
		{Kind: AddSigningKey, URL: p.repos.KeyBaseURL + "/fsx-ubuntu-public-key.asc"},
		{
			Kind:  AddRepository,
			URL:   fmt.Sprintf("deb %s/ubuntu %s main", p.repos.BaseURL, rule.RepoToken),
			Label: rule.RepoToken,
		},
		{Kind: RefreshCache},
		{Kind: InstallPackages, Packages: []string{pkg}},
		{Kind: CleanCache, BestEffort: true},
	}}, nil
}
