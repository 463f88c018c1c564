// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"github.com/nats-io/nats.go"
	"github.com/synadia-io/orbit.go/natscontext"
)

// subscribeTriggers listens for remote deploy triggers, any message on
// the trigger subject schedules a forced deploy cycle
func (w *Watcher) subscribeTriggers() error {
	nc, _, err := natscontext.Connect(w.cfg.NatsContext, nats.Name("shipit watcher"))
	if err != nil {
		return err
	}

	w.log.Info("Listening for deploy triggers", "subject", w.cfg.TriggerSubject)

	_, err = nc.Subscribe(w.cfg.TriggerSubject, func(_ *nats.Msg) {
		select {
		case w.trigger <- struct{}{}:
		default:
			w.log.Debug("Deploy trigger already pending, ignoring")
		}
	})
	if err != nil {
		nc.Close()
		return err
	}

	go func() {
		<-w.ctx.Done()
		nc.Drain()
	}()

	return nil
}
