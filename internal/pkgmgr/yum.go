package pkgmgr

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Yum drives yum or dnf on the Enterprise Linux family.
type Yum struct {
	binary   string // "yum" or "dnf"
	run      runner
	fetch    func(ctx context.Context, url string) ([]byte, error)
	repoFile string
}

// NewYum returns a Yum using the given binary.
func NewYum(binary string) *Yum {
	return &Yum{
		binary:   binary,
		run:      runCommand,
		fetch:    fetch,
		repoFile: "/etc/yum.repos.d/aws-fsx.repo",
	}
}

func (y *Yum) AddSigningKey(ctx context.Context, url string) error {
	return y.run(ctx, "rpm", "--import", url)
}

// AddRepository downloads the .repo definition and drops it into
// /etc/yum.repos.d. label is informational.
func (y *Yum) AddRepository(ctx context.Context, url, label string) error {
	repo, err := y.fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("downloading repository definition: %w", err)
	}
	return os.WriteFile(y.repoFile, repo, 0o644)
}

func (y *Yum) RewriteRepositoryRevision(ctx context.Context, repoFile, oldToken, newToken string) error {
	return rewriteFileToken(repoFile, oldToken, newToken)
}

func (y *Yum) RefreshCache(ctx context.Context) error {
	return y.run(ctx, y.binary, "makecache")
}

func (y *Yum) Install(ctx context.Context, packages []string) error {
	args := append([]string{"install", "-y"}, packages...)
	return y.run(ctx, y.binary, args...)
}

func (y *Yum) Remove(ctx context.Context, packages []string) error {
	args := append([]string{"remove", "-y"}, packages...)
	return y.run(ctx, y.binary, args...)
}

func (y *Yum) CleanCache(ctx context.Context) error {
	return y.run(ctx, y.binary, "clean", "all")
}

// Amazon wraps Yum for the Amazon family. On Amazon Linux 2 the client
// comes from the "lustre" extras topic, which must be enabled before the
// install; 2023 carries the client in the core repositories via dnf.
type Amazon struct {
	*Yum
	extrasTopic string
}

// NewAmazon returns the Amazon-family manager for the given OS version.
func NewAmazon(osVersion string) *Amazon {
	binary := "yum"
	topic := ""
	switch osVersion {
	case "2023":
		binary = "dnf"
	case "2":
		topic = "lustre"
	}
	return &Amazon{Yum: NewYum(binary), extrasTopic: topic}
}

func (a *Amazon) Install(ctx context.Context, packages []string) error {
	if a.extrasTopic != "" {
		if err := a.run(ctx, "amazon-linux-extras", "install", "-y", a.extrasTopic); err != nil {
			return err
		}
	}
	return a.Yum.Install(ctx, packages)
}

// rewriteFileToken pins a repository definition by replacing every
// occurrence of oldToken with newToken in place.
func rewriteFileToken(path, oldToken, newToken string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading repository file: %w", err)
	}
	content := string(raw)
	if !strings.Contains(content, oldToken) {
		return fmt.Errorf("repository file %s has no %q token to rewrite", path, oldToken)
	}
	rewritten := strings.ReplaceAll(content, oldToken, newToken)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(rewritten), info.Mode().Perm())
}
