// Package kmod wraps the kernel module operations the installer needs:
// presence, loading, and metadata.
package kmod

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Manager is the kernel-module collaborator.
type Manager interface {
	// Loaded reports whether the named module is currently loaded.
	Loaded(ctx context.Context, name string) (bool, error)

	// Load modprobes the named module.
	Load(ctx context.Context, name string) error

	// Reload unloads and reloads the named module.
	Reload(ctx context.Context, name string) error

	// Info returns the module's version string from modinfo.
	Info(ctx context.Context, name string) (string, error)
}

// HostModules is the Manager for the real host.
type HostModules struct {
	procModules string
	run         func(ctx context.Context, name string, args ...string) (string, error)
}

// New returns a HostModules reading /proc/modules and shelling to
// modprobe/modinfo.
func New() *HostModules {
	return &HostModules{
		procModules: "/proc/modules",
		run: func(ctx context.Context, name string, args ...string) (string, error) {
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
			}
			return string(out), nil
		},
	}
}

func (h *HostModules) Loaded(ctx context.Context, name string) (bool, error) {
	f, err := os.Open(h.procModules)
	if err != nil {
		return false, fmt.Errorf("reading loaded modules: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == name {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func (h *HostModules) Load(ctx context.Context, name string) error {
	_, err := h.run(ctx, "modprobe", name)
	return err
}

func (h *HostModules) Reload(ctx context.Context, name string) error {
	// Best effort on the unload: the module may not be loaded at all.
	_, _ = h.run(ctx, "modprobe", "-r", name)
	_, err := h.run(ctx, "modprobe", name)
	return err
}

// Info returns the "version:" field of modinfo output, falling back to the
// first line when the module carries no version.
func (h *HostModules) Info(ctx context.Context, name string) (string, error) {
	out, err := h.run(ctx, "modinfo", name)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "version:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "version:")), nil
		}
	}
	if i := strings.IndexByte(out, '\n'); i > 0 {
		return strings.TrimSpace(out[:i]), nil
	}
	return strings.TrimSpace(out), nil
}
