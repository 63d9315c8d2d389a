package netmon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by backend.Client.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthPoller polls a health endpoint and feeds the result into a Monitor.
type HealthPoller struct {
	Checker  HealthChecker
	Monitor  *Monitor
	Interval time.Duration
	Timeout  time.Duration
	Logger   zerolog.Logger
}

const (
	defaultHealthInterval = 15 * time.Second
	defaultHealthTimeout  = 5 * time.Second
)

// Run checks immediately and then every Interval until ctx is done.
func (p *HealthPoller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check runs a single health check and reports the result.
func (p *HealthPoller) Check(ctx context.Context) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.Checker.Health(checkCtx)
	if ctx.Err() != nil {
		// Shutting down; the result says nothing about the network.
		return
	}
	if err != nil {
		p.Logger.Debug().Err(err).Msg("health check failed")
	}
	p.Monitor.Update(Bool(err == nil))
}
