package tor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/tornago"

	"github.com/nao1215/reposcout/internal/proxy"
)

// DefaultStartupTimeout bounds Tor bootstrapping.
const DefaultStartupTimeout = 3 * time.Minute

// EmbeddedTor manages a private Tor daemon started through tornago.
//
// Bootstrapping takes one to three minutes: the daemon fetches directory
// information and builds its first circuits before the SOCKS port answers.
type EmbeddedTor struct {
	mu sync.Mutex

	process     *tornago.TorProcess
	socksAddr   string
	controlAddr string

	startupTimeout time.Duration
}

// EmbeddedTorOption configures an EmbeddedTor instance.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if timeout > 0 {
			e.startupTimeout = timeout
		}
	}
}

// NewEmbeddedTor creates a manager. Call Start to launch the daemon.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{startupTimeout: DefaultStartupTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped or the startup timeout passes. Starting a running daemon is
// a no-op.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.process != nil {
		return nil
	}

	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck // best effort
		return err
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	e.controlAddr = process.ControlAddr()
	return nil
}

// Stop shuts the daemon down. It is safe on an unstarted instance and
// safe to call more than once.
func (e *EmbeddedTor) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	e.controlAddr = ""
	return err
}

// SocksAddr returns the SOCKS5 address ("127.0.0.1:42715"), or "" when
// the daemon is not running.
func (e *EmbeddedTor) SocksAddr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.socksAddr
}

// ControlAddr returns the control port address, or "" when the daemon is
// not running.
func (e *EmbeddedTor) ControlAddr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controlAddr
}

// IsRunning reports whether the daemon is running.
func (e *EmbeddedTor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process != nil
}

// Candidate returns the daemon's SOCKS port as a proxy candidate.
func (e *EmbeddedTor) Candidate() (proxy.Candidate, error) {
	addr := e.SocksAddr()
	if addr == "" {
		return "", ErrNotRunning
	}
	return SOCKSCandidate(addr)
}

// SOCKSCandidate turns a Tor SOCKS address into a socks5h candidate.
func SOCKSCandidate(addr string) (proxy.Candidate, error) {
	c := proxy.Candidate("socks5h://" + addr)
	if _, err := proxy.ParseCandidate(string(c)); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}
	return c, nil
}
