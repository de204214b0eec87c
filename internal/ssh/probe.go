package ssh

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"golang.org/x/crypto/ssh"
)

var (
	ErrNoBanner   = fmt.Errorf("remote did not identify as an SSH server")
	ErrProbeLogin = fmt.Errorf("SSH login probe failed")
)

// Target describes the remote service a Probe checks.
type Target struct {
	Host string
	Port uint16
	User string
	// Signer, when set, makes the probe log in and run a no-op command.
	// Without it the probe only checks that an SSH server answers.
	Signer ssh.Signer
}

func (t Target) addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(int(port)))
}

// Probe performs a single readiness check of 'target', bounded by the
// deadline of 'ctx'. A nil return means the remote service accepts
// connections.
func Probe(ctx context.Context, target Target) error {
	if target.Signer == nil {
		return banner(ctx, target.addr())
	}
	client, err := Connect(ctx, target.Host, target.Port, target.User, target.Signer)
	if err != nil {
		return err
	}
	defer client.Close()
	if _, _, err := Exec(client, "true"); err != nil {
		return fmt.Errorf("%w: %w", ErrProbeLogin, err)
	}
	return nil
}

// banner checks that 'addr' accepts TCP connections and greets with an SSH
// identification string.
func banner(ctx context.Context, addr string) error {
	log := clog.FromContext(ctx).With("target", addr)
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sshDefaultTimeout)
		defer cancel()
	}
	conn, err := new(net.Dialer).DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Debug("target is not yet reachable", "error", err)
		return fmt.Errorf("%w: %w", ErrSSHFailedDial, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("encountered error closing TCP connection", "error", err)
		}
	}()
	deadline, _ := ctx.Deadline()
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	// RFC 4253 allows other lines before the identification string.
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if strings.HasPrefix(line, "SSH-") {
			log.Debug("target is now reachable", "banner", strings.TrimSpace(line))
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNoBanner, err)
		}
	}
}
