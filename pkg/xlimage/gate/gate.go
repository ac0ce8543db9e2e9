// Package gate provides environment checks that callers can inject into an
// extraction run through xlimage.Options.EnvironmentCheck.
package gate

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds a TCPProbe without an explicit timeout.
const DefaultTimeout = 3 * time.Second

// ErrUnreachable indicates the probed address could not be reached.
var ErrUnreachable = errors.New("required network endpoint unreachable")

// TCPProbe passes when a TCP connection to Addr can be opened.
type TCPProbe struct {
	Addr    string
	Timeout time.Duration
	// Dial defaults to net.DialTimeout.
	Dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Check dials Addr once.
func (p TCPProbe) Check() error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := p.Dial
	if dial == nil {
		dial = net.DialTimeout
	}

	conn, err := dial("tcp", p.Addr, timeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, p.Addr, err)
	}
	return conn.Close()
}
