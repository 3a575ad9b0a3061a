package rcc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// SSHRunner delivers payloads over SSH, one connection per Run call. Pod
// nodes are few and payloads are short, so connection reuse buys nothing
// and a fresh connection keeps failure attribution simple.
type SSHRunner struct {
	cfg    Config
	auth   []ssh.AuthMethod
	logger *slog.Logger
}

// NewSSHRunner builds a runner from cfg. The key file, when configured, is
// read and parsed once here so a bad key fails fast instead of on first use.
func NewSSHRunner(cfg Config, logger *slog.Logger) (*SSHRunner, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("rcc: read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("rcc: parse key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	return &SSHRunner{
		cfg:    cfg,
		auth:   auth,
		logger: logger.With("component", "rcc"),
	}, nil
}

// Run executes payload on host. Channel failures (dial, handshake, session
// setup) and payload failures (non-zero remote exit) are reported in
// separate Result fields and never conflated.
func (r *SSHRunner) Run(ctx context.Context, host, payload string) Result {
	addr := net.JoinHostPort(host, strconv.Itoa(r.cfg.Port))

	dialer := net.Dialer{Timeout: r.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{
			ChannelCode: ChannelConnectFail,
			Err:         fmt.Errorf("rcc: dial %s: %w", addr, err),
		}
	}

	clientCfg := &ssh.ClientConfig{
		User:            r.cfg.User,
		Auth:            r.auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.cfg.Timeout,
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return Result{
			ChannelCode: ChannelConnectFail,
			Err:         fmt.Errorf("rcc: handshake %s: %w", addr, err),
		}
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{
			ChannelCode: ChannelExecuteFail,
			Err:         fmt.Errorf("rcc: open session on %s: %w", addr, err),
		}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	r.logger.Debug("running payload", "host", host)
	err = session.Run(payload)

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			// The payload was delivered and ran; the failure is its own.
			result.PayloadCode = exitErr.ExitStatus()
			return result
		}
		result.ChannelCode = ChannelExecuteFail
		result.Err = fmt.Errorf("rcc: run payload on %s: %w", addr, err)
		return result
	}
	return result
}
