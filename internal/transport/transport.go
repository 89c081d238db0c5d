// Package transport establishes the TLS-protected byte stream the
// session package drives. spec.md §1 scopes socket establishment,
// TLS handshake, and record I/O out of the core as an "external
// collaborator with a narrow interface" — this package is that
// collaborator.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"
)

// Config configures one connection attempt. Ports is tried in order,
// cycling, for up to MaxAttempts total attempts, waiting RetryDelay
// between attempts — grounded on ExasolClient::connect's
// max_attempts/retry_delay loop in
// original_source/src/ExasolClient.cpp.
type Config struct {
	Address      string
	Port         uint16   // legacy single-port field
	Ports        []uint16 // preferred; normalized from Port if empty
	ServerName   string
	CACertPath   string
	ClientCert   string
	ClientKey    string
	MaxAttempts  int
	RetryDelay   time.Duration
}

// normalizedPorts mirrors the legacy-config normalization in
// ExasolClient::connect: a bare Port is folded into Ports when Ports
// is empty.
func (c Config) normalizedPorts() ([]uint16, error) {
	ports := c.Ports
	if len(ports) == 0 && c.Port != 0 {
		ports = []uint16{c.Port}
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("transport: no ports provided in configuration")
	}
	return ports, nil
}

// Conn is the narrow transport interface spec.md §4.4 requires of the
// session layer: a blocking chunked reader and a reliable, fully
// flushed writer. No framing; the session performs its own line
// splitting.
type Conn interface {
	ReadChunk(buf []byte) (int, error)
	WriteAll(b []byte) error
	CipherSuite() string
	Close() error
}

type tlsConn struct {
	conn *tls.Conn
}

func (t *tlsConn) ReadChunk(buf []byte) (int, error) {
	return t.conn.Read(buf)
}

func (t *tlsConn) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := t.conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (t *tlsConn) CipherSuite() string {
	return tls.CipherSuiteName(t.conn.ConnectionState().CipherSuite)
}

func (t *tlsConn) Close() error {
	return t.conn.Close()
}

// Dial resolves cfg.Address against cfg.Ports in round-robin order,
// retrying on failure up to cfg.MaxAttempts times with cfg.RetryDelay
// between attempts, then performs the TLS handshake. It is the Go
// analogue of ExasolClient::connect.
func Dial(ctx context.Context, cfg Config) (Conn, error) {
	ports, err := cfg.normalizedPorts()
	if err != nil {
		return nil, err
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		port := ports[(attempt-1)%len(ports)]
		addr := fmt.Sprintf("%s:%d", cfg.Address, port)

		dialer := &net.Dialer{}
		rawConn, dialErr := dialer.DialContext(ctx, "tcp", addr)
		if dialErr != nil {
			lastErr = dialErr
			if attempt == maxAttempts {
				break
			}
			if !sleepOrDone(ctx, retryDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		handshakeConn := tls.Client(rawConn, tlsConfig)
		if hsErr := handshakeConn.HandshakeContext(ctx); hsErr != nil {
			rawConn.Close()
			lastErr = hsErr
			if attempt == maxAttempts {
				break
			}
			if !sleepOrDone(ctx, retryDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		return &tlsConn{conn: handshakeConn}, nil
	}
	return nil, fmt.Errorf("transport: connection failed after %d attempts: %w", maxAttempts, lastErr)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tc := &tls.Config{
		ServerName: cfg.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("transport: reading CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: no certificates parsed from %s", cfg.CACertPath)
		}
		tc.RootCAs = pool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("transport: loading client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, nil
}
