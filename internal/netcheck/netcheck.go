// Package netcheck confirms network reachability of the remote filesystem
// endpoint through a strict linear fallback chain: ping the hostname,
// fall back to the resolved address, reload the transport kernel module,
// and retry the hostname once.
package netcheck

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/kmod"
	"github.com/yairfalse/lustre-client-installer/internal/logging"
)

// TransportModule is the kernel networking module reloaded as the last
// fallback before giving up.
const TransportModule = "lnet"

// DNSResolutionError reports a hostname that could not be resolved after
// the direct ping failed.
type DNSResolutionError struct {
	Host string
	Err  error
}

func (e *DNSResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %v", e.Host, e.Err)
}

func (e *DNSResolutionError) Unwrap() error { return e.Err }

// UnreachableError reports that the endpoint stayed unreachable through the
// whole fallback chain.
type UnreachableError struct {
	Host string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("filesystem endpoint %s is not reachable", e.Host)
}

// Resolver resolves hostnames. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Pinger probes a target. The default implementation shells to ping.
type Pinger interface {
	Ping(ctx context.Context, target string) error
}

// Checker walks the reachability fallback chain.
type Checker struct {
	resolver Resolver
	pinger   Pinger
	modules  kmod.Manager
	log      *logging.Logger
}

// New builds a Checker with the system resolver and ping binary.
func New(modules kmod.Manager, log *logging.Logger) *Checker {
	return &Checker{
		resolver: net.DefaultResolver,
		pinger:   execPinger{},
		modules:  modules,
		log:      log,
	}
}

// NewWithCollaborators builds a Checker over explicit collaborators.
func NewWithCollaborators(resolver Resolver, pinger Pinger, modules kmod.Manager, log *logging.Logger) *Checker {
	return &Checker{resolver: resolver, pinger: pinger, modules: modules, log: log}
}

// Check reports nil when the endpoint is reachable. The chain is linear,
// not a loop: at most one retry happens, after the transport module reload.
func (c *Checker) Check(ctx context.Context, host string) error {
	c.log.Info("checking reachability of the filesystem endpoint", zap.String("host", host))

	if err := c.pinger.Ping(ctx, host); err == nil {
		c.log.Success("endpoint reachable by hostname", zap.String("host", host))
		return nil
	}

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		if err == nil {
			err = fmt.Errorf("no addresses returned")
		}
		return &DNSResolutionError{Host: host, Err: err}
	}

	c.log.Info("hostname ping failed, trying resolved address", zap.String("addr", addrs[0]))
	if err := c.pinger.Ping(ctx, addrs[0]); err == nil {
		c.log.Success("endpoint reachable by address", zap.String("addr", addrs[0]))
		return nil
	}

	c.log.Info("reloading network transport module and retrying once", zap.String("module", TransportModule))
	if err := c.modules.Reload(ctx, TransportModule); err != nil {
		c.log.Error("transport module reload failed", zap.Error(err))
		return &UnreachableError{Host: host}
	}

	if err := c.pinger.Ping(ctx, host); err == nil {
		c.log.Success("endpoint reachable after transport reload", zap.String("host", host))
		return nil
	}

	return &UnreachableError{Host: host}
}

// execPinger shells to the system ping binary.
type execPinger struct{}

func (execPinger) Ping(ctx context.Context, target string) error {
	cmd := exec.CommandContext(ctx, "ping", "-c", "2", "-W", "5", target)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ping %s: %w: %s", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}
