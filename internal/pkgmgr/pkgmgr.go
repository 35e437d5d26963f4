// Package pkgmgr wraps the host package managers behind one interface so
// the executor, verifier, and uninstaller never shell out directly.
package pkgmgr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/yairfalse/lustre-client-installer/internal/platform"
)

// Manager is the package-manager collaborator consumed by the executor and
// the uninstall coordinator. Every call is a mutating host operation except
// where noted.
type Manager interface {
	AddSigningKey(ctx context.Context, url string) error
	AddRepository(ctx context.Context, url, label string) error
	RewriteRepositoryRevision(ctx context.Context, repoFile, oldToken, newToken string) error
	RefreshCache(ctx context.Context) error
	Install(ctx context.Context, packages []string) error
	Remove(ctx context.Context, packages []string) error
	CleanCache(ctx context.Context) error
}

// HostConfigurator is implemented by managers whose family needs the
// one-time unsupported-kernel-modules host configuration (SLES).
type HostConfigurator interface {
	EnableUnsupportedModules(ctx context.Context) error
}

// ForProfile returns the Manager for the probed host.
func ForProfile(p platform.Profile) (Manager, error) {
	switch p.Family {
	case platform.FamilyDebian:
		return NewApt(), nil
	case platform.FamilyAmazon:
		return NewAmazon(p.OSVersion), nil
	case platform.FamilyEnterprise:
		return NewYum(yumBinaryFor(p.OSVersion)), nil
	case platform.FamilySUSE:
		return NewZypper(), nil
	}
	return nil, fmt.Errorf("no package manager for family %q", p.Family)
}

// yumBinaryFor picks dnf on EL8+ and yum before that.
func yumBinaryFor(osVersion string) string {
	major := osVersion
	if i := strings.IndexByte(major, '.'); i >= 0 {
		major = major[:i]
	}
	if major == "7" {
		return "yum"
	}
	return "dnf"
}

// runner executes one host command, returning combined output in the error
// on failure.
type runner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, tail(out))
	}
	return nil
}

// tail keeps error messages readable when a package manager dumps pages of
// output.
func tail(out []byte) string {
	const keep = 512
	s := strings.TrimSpace(string(out))
	if len(s) > keep {
		s = "..." + s[len(s)-keep:]
	}
	return s
}

// fetch downloads url with a bounded timeout.
func fetch(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
