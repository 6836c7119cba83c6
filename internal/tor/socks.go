package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/nao1215/reposcout/internal/proxy"
)

// DefaultCheckTimeout bounds CheckSOCKS.
const DefaultCheckTimeout = 2 * time.Second

const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5CmdConnect   = 0x01
	socks5AddrTypeName = 0x03

	// socks5TestHost never resolves; only the shape of the reply matters.
	socks5TestHost = "reposcout-check.invalid"
)

// CheckSOCKS performs a SOCKS5 greeting and a CONNECT request against addr.
// Any well-formed SOCKS5 reply, including a failure code for the
// unresolvable test host, counts as OK.
func CheckSOCKS(ctx context.Context, addr string, timeout time.Duration) ProxyStatus {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}
	greeting := make([]byte, 2)
	if _, err := io.ReadFull(conn, greeting); err != nil {
		return readFailure(err)
	}
	if greeting[0] != socks5Version || greeting[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeName, byte(len(socks5TestHost))}
	req = append(req, socks5TestHost...)
	req = append(req, 0x00, 80)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailure(err)
	}
	if reply[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

func readFailure(err error) ProxyStatus {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// ExternalCandidate checks that addr is a running SOCKS5 proxy and returns
// it as a socks5h candidate.
func ExternalCandidate(ctx context.Context, addr string, timeout time.Duration) (proxy.Candidate, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}

	if status := CheckSOCKS(ctx, addr, timeout); status != ProxyStatusOK {
		return "", fmt.Errorf("tor proxy %s: %w", addr, status.Error())
	}
	return SOCKSCandidate(addr)
}
