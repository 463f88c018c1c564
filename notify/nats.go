// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package notify publishes deploy session events to NATS so other
// systems can observe deploys as they happen
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/synadia-io/orbit.go/natscontext"

	"github.com/shipit-project/shipit/internal/backoff"
	"github.com/shipit-project/shipit/metrics"
	"github.com/shipit-project/shipit/model"
)

// Publisher publishes session events as JSON to a NATS subject, the
// connection is resolved from a NATS context
type Publisher struct {
	natsContext string
	subject     string
	log         model.Logger
	nc          *nats.Conn

	mu sync.Mutex
}

// NewPublisher creates a publisher for the named NATS context, the
// connection is only established on Connect
func NewPublisher(natsContext string, subject string, log model.Logger) (*Publisher, error) {
	return &Publisher{
		natsContext: natsContext,
		subject:     subject,
		log:         log.With("component", "notify", "subject", subject),
	}, nil
}

// Connect establishes the NATS connection with a few backed off
// attempts, a deploy should not hang on an unreachable notification
// target
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nc != nil {
		return nil
	}

	policy := backoff.Policy{Millis: []int{250, 500, 1000}}

	var err error

	for try := 1; try <= 3; try++ {
		var nc *nats.Conn

		nc, _, err = natscontext.Connect(p.natsContext, nats.Name("shipit notifier"))
		if err == nil {
			p.nc = nc
			return nil
		}

		p.log.Warn("Could not connect for notifications", "try", try, "error", err)

		if try < 3 {
			serr := policy.TrySleep(ctx, try-1)
			if serr != nil {
				return serr
			}
		}
	}

	return err
}

// PublishEvent publishes a single session event, publishes on a
// disconnected publisher are silently dropped
func (p *Publisher) PublishEvent(event model.SessionEvent) error {
	p.mu.Lock()
	nc := p.nc
	p.mu.Unlock()

	if nc == nil {
		return nil
	}

	jb, err := json.Marshal(event)
	if err != nil {
		metrics.NotifyPublishFailed.WithLabelValues(p.subject).Inc()
		return err
	}

	err = nc.Publish(p.subject, jb)
	if err != nil {
		metrics.NotifyPublishFailed.WithLabelValues(p.subject).Inc()
		return err
	}

	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nc == nil {
		return
	}

	err := p.nc.Drain()
	if err != nil {
		p.log.Warn("Could not drain connection", "error", err)
		p.nc.Close()
	}

	p.nc = nil
}
