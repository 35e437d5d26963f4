package netcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/lustre-client-installer/internal/logging"
)

type fakeResolver struct {
	addrs []string
	err   error
	calls int
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	f.calls++
	return f.addrs, f.err
}

// scriptedPinger returns its results in call order.
type scriptedPinger struct {
	results []error
	targets []string
}

func (s *scriptedPinger) Ping(ctx context.Context, target string) error {
	s.targets = append(s.targets, target)
	if len(s.results) == 0 {
		return errors.New("unexpected ping")
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}

type fakeModules struct {
	reloadErr   error
	reloadCalls int
	reloaded    []string
}

func (f *fakeModules) Loaded(ctx context.Context, name string) (bool, error) { return true, nil }
func (f *fakeModules) Load(ctx context.Context, name string) error           { return nil }
func (f *fakeModules) Info(ctx context.Context, name string) (string, error) { return "", nil }

func (f *fakeModules) Reload(ctx context.Context, name string) error {
	f.reloadCalls++
	f.reloaded = append(f.reloaded, name)
	return f.reloadErr
}

func TestCheckSucceedsOnFirstPing(t *testing.T) {
	pinger := &scriptedPinger{results: []error{nil}}
	resolver := &fakeResolver{}
	modules := &fakeModules{}

	c := NewWithCollaborators(resolver, pinger, modules, logging.NewNop())
	err := c.Check(context.Background(), "fs-12345.example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{"fs-12345.example.com"}, pinger.targets)
	assert.Zero(t, resolver.calls)
	assert.Zero(t, modules.reloadCalls)
}

func TestCheckFallsBackToResolvedAddress(t *testing.T) {
	pinger := &scriptedPinger{results: []error{errors.New("timeout"), nil}}
	resolver := &fakeResolver{addrs: []string{"10.0.0.5"}}

	c := NewWithCollaborators(resolver, pinger, &fakeModules{}, logging.NewNop())
	err := c.Check(context.Background(), "fs-12345.example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{"fs-12345.example.com", "10.0.0.5"}, pinger.targets)
}

// The full chain: hostname fails, IP fails, the transport module reload
// succeeds, and the single hostname retry succeeds. Exactly one reload and
// exactly two hostname pings.
func TestCheckFullFallbackChain(t *testing.T) {
	pinger := &scriptedPinger{results: []error{errors.New("timeout"), errors.New("timeout"), nil}}
	resolver := &fakeResolver{addrs: []string{"10.0.0.5"}}
	modules := &fakeModules{}

	c := NewWithCollaborators(resolver, pinger, modules, logging.NewNop())
	err := c.Check(context.Background(), "fs-12345.example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, modules.reloadCalls)
	assert.Equal(t, []string{TransportModule}, modules.reloaded)

	hostnamePings := 0
	for _, target := range pinger.targets {
		if target == "fs-12345.example.com" {
			hostnamePings++
		}
	}
	assert.Equal(t, 2, hostnamePings)
	assert.Equal(t, []string{"fs-12345.example.com", "10.0.0.5", "fs-12345.example.com"}, pinger.targets)
}

func TestCheckDNSFailure(t *testing.T) {
	pinger := &scriptedPinger{results: []error{errors.New("timeout")}}
	resolver := &fakeResolver{err: errors.New("NXDOMAIN")}

	c := NewWithCollaborators(resolver, pinger, &fakeModules{}, logging.NewNop())
	err := c.Check(context.Background(), "fs-nope.example.com")

	var dnsErr *DNSResolutionError
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, "fs-nope.example.com", dnsErr.Host)
}

func TestCheckUnreachableAfterFullChain(t *testing.T) {
	pinger := &scriptedPinger{results: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	resolver := &fakeResolver{addrs: []string{"10.0.0.5"}}
	modules := &fakeModules{}

	c := NewWithCollaborators(resolver, pinger, modules, logging.NewNop())
	err := c.Check(context.Background(), "fs-12345.example.com")

	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	// Strictly one retry: three pings total, one reload.
	assert.Len(t, pinger.targets, 3)
	assert.Equal(t, 1, modules.reloadCalls)
}

func TestCheckReloadFailureIsUnreachable(t *testing.T) {
	pinger := &scriptedPinger{results: []error{errors.New("timeout"), errors.New("timeout")}}
	resolver := &fakeResolver{addrs: []string{"10.0.0.5"}}
	modules := &fakeModules{reloadErr: errors.New("modprobe: FATAL")}

	c := NewWithCollaborators(resolver, pinger, modules, logging.NewNop())
	err := c.Check(context.Background(), "fs-12345.example.com")

	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Len(t, pinger.targets, 2, "no retry after a failed reload")
}
