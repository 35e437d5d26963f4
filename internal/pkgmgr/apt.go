package pkgmgr

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yairfalse/lustre-client-installer/internal/platform"
)

// Apt drives apt-get on the Debian family.
type Apt struct {
	run         runner
	fetch       func(ctx context.Context, url string) ([]byte, error)
	sourcesFile string
	keyringDir  string
}

// NewApt returns an Apt acting on the real host.
func NewApt() *Apt {
	return &Apt{
		run:         runCommand,
		fetch:       fetch,
		sourcesFile: "/etc/apt/sources.list.d/fsxlustreclientrepo.list",
		keyringDir:  "/etc/apt/trusted.gpg.d",
	}
}

func (a *Apt) AddSigningKey(ctx context.Context, url string) error {
	key, err := a.fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("downloading signing key: %w", err)
	}
	tmp, err := os.CreateTemp("", "fsx-key-*.asc")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(key); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return a.run(ctx, "apt-key", "add", tmp.Name())
}

// AddRepository writes the full deb line (passed as url) to the sources
// file. label is unused by apt.
func (a *Apt) AddRepository(ctx context.Context, url, label string) error {
	return os.WriteFile(a.sourcesFile, []byte(url+"\n"), 0o644)
}

func (a *Apt) RewriteRepositoryRevision(ctx context.Context, repoFile, oldToken, newToken string) error {
	return rewriteFileToken(repoFile, oldToken, newToken)
}

func (a *Apt) RefreshCache(ctx context.Context) error {
	return a.run(ctx, "apt-get", "update")
}

func (a *Apt) Install(ctx context.Context, packages []string) error {
	args := append([]string{"install", "-y"}, packages...)
	return a.run(ctx, "apt-get", args...)
}

func (a *Apt) Remove(ctx context.Context, packages []string) error {
	args := append([]string{"remove", "-y"}, packages...)
	return a.run(ctx, "apt-get", args...)
}

func (a *Apt) CleanCache(ctx context.Context) error {
	return a.run(ctx, "apt-get", "clean")
}

// RepoIndex checks the vendor Ubuntu repository index for a package without
// touching apt state, so the planner can refuse unplannable installs.
type RepoIndex struct {
	baseURL string
	fetch   func(ctx context.Context, url string) ([]byte, error)
}

// NewRepoIndex builds a RepoIndex over the vendor repository base URL.
func NewRepoIndex(baseURL string) *RepoIndex {
	return &RepoIndex{baseURL: baseURL, fetch: fetch}
}

// HasPackage scans the codename's Packages index for an exact package name.
func (r *RepoIndex) HasPackage(ctx context.Context, codename, name string, arch platform.Arch) (bool, error) {
	index, err := r.packagesIndex(ctx, codename, debArch(arch))
	if err != nil {
		return false, err
	}
	needle := []byte("Package: " + name + "\n")
	return bytes.Contains(index, needle), nil
}

func (r *RepoIndex) packagesIndex(ctx context.Context, codename, arch string) ([]byte, error) {
	base := fmt.Sprintf("%s/ubuntu/dists/%s/main/binary-%s/Packages", r.baseURL, codename, arch)

	if raw, err := r.fetch(ctx, base); err == nil {
		return raw, nil
	}
	raw, err := r.fetch(ctx, base+".gz")
	if err != nil {
		return nil, fmt.Errorf("fetching package index for %s/%s: %w", codename, arch, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func debArch(arch platform.Arch) string {
	switch arch {
	case platform.ArchAarch64:
		return "arm64"
	default:
		return "amd64"
	}
}
