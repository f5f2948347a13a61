// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

package supervisor

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// ConnectivityProber checks internet availability by attempting a DNS
// connect to a well-known resolver, falling back to an HTTPS HEAD
// request if the connect fails.
type ConnectivityProber struct {
	dialer     net.Dialer
	httpClient *http.Client
	dnsAddr    string
	fallback   string

	online atomic.Bool
}

// NewConnectivityProber builds a prober against the given DNS address
// (host:port, typically "8.8.8.8:53") with a fallback HTTPS URL.
func NewConnectivityProber(dnsAddr, fallbackURL string) *ConnectivityProber {
	p := &ConnectivityProber{
		dialer:     net.Dialer{Timeout: 3 * time.Second},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		dnsAddr:    dnsAddr,
		fallback:   fallbackURL,
	}
	p.online.Store(false)
	return p
}

// Online reports the prober's last-known connectivity state.
func (p *ConnectivityProber) Online() bool { return p.online.Load() }

// Probe performs a single connectivity check and updates Online().
func (p *ConnectivityProber) Probe(ctx context.Context) bool {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.dnsAddr)
	if err == nil {
		conn.Close()
		p.online.Store(true)
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.fallback, nil)
	if err != nil {
		p.online.Store(false)
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.online.Store(false)
		return false
	}
	resp.Body.Close()
	p.online.Store(true)
	return true
}

// WaitUntilStable blocks, polling every checkInterval, until
// consecutiveRequired successful probes happen back to back, or ctx is
// canceled.
func (p *ConnectivityProber) WaitUntilStable(ctx context.Context, checkInterval time.Duration, consecutiveRequired int) error {
	streak := 0
	for {
		if p.Probe(ctx) {
			streak++
			if streak >= consecutiveRequired {
				return nil
			}
		} else {
			streak = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(checkInterval):
		}
	}
}

// Serve re-probes every interval for the life of ctx, invoking
// onChange whenever the online state flips. Its extra arguments keep it
// from satisfying suture.Service directly; connectivityService in
// supervisor.go adapts it.
func (p *ConnectivityProber) Serve(ctx context.Context, interval time.Duration, onChange func(online bool)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := p.Online()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := p.Probe(ctx)
			if now != last {
				onChange(now)
				last = now
			}
		}
	}
}
