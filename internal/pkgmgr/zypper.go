package pkgmgr

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Zypper drives zypper on the SUSE family.
type Zypper struct {
	run runner

	// modprobeConf is the SLES unsupported-modules switch. The packaged
	// file lives under /lib/modprobe.d; the override goes to /etc.
	modprobeConf     string
	modprobeOverride string
}

// NewZypper returns a Zypper acting on the real host.
func NewZypper() *Zypper {
	return &Zypper{
		run:              runCommand,
		modprobeConf:     "/lib/modprobe.d/10-unsupported-modules.conf",
		modprobeOverride: "/etc/modprobe.d/10-unsupported-modules.conf",
	}
}

func (z *Zypper) AddSigningKey(ctx context.Context, url string) error {
	return z.run(ctx, "rpm", "--import", url)
}

func (z *Zypper) AddRepository(ctx context.Context, url, label string) error {
	return z.run(ctx, "zypper", "--non-interactive", "addrepo", "--check", url, label)
}

func (z *Zypper) RewriteRepositoryRevision(ctx context.Context, repoFile, oldToken, newToken string) error {
	return rewriteFileToken(repoFile, oldToken, newToken)
}

func (z *Zypper) RefreshCache(ctx context.Context) error {
	return z.run(ctx, "zypper", "--non-interactive", "refresh")
}

func (z *Zypper) Install(ctx context.Context, packages []string) error {
	args := append([]string{"--non-interactive", "install", "-y"}, packages...)
	return z.run(ctx, "zypper", args...)
}

func (z *Zypper) Remove(ctx context.Context, packages []string) error {
	args := append([]string{"--non-interactive", "remove", "-y"}, packages...)
	return z.run(ctx, "zypper", args...)
}

func (z *Zypper) CleanCache(ctx context.Context) error {
	return z.run(ctx, "zypper", "--non-interactive", "clean")
}

// EnableUnsupportedModules flips allow_unsupported_modules to 1. SLES
// refuses to modprobe the lustre module without it.
func (z *Zypper) EnableUnsupportedModules(ctx context.Context) error {
	raw, err := os.ReadFile(z.modprobeConf)
	if err == nil && strings.Contains(string(raw), "allow_unsupported_modules 0") {
		updated := strings.ReplaceAll(string(raw), "allow_unsupported_modules 0", "allow_unsupported_modules 1")
		return os.WriteFile(z.modprobeConf, []byte(updated), 0o644)
	}

	// No packaged switch file to edit; install an override.
	content := "allow_unsupported_modules 1\n"
	if err := os.WriteFile(z.modprobeOverride, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing modprobe override: %w", err)
	}
	return nil
}
