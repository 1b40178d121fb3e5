// Package metrics counts what the delivery sweeps did. Sends are retry-free,
// so every dropped or failed message must leave a trace here.
package metrics

import "sync/atomic"

type Counters struct {
	DeliveriesSent    atomic.Int64
	DeliveryFailures  atomic.Int64
	DeferredDelivered atomic.Int64
	DeferredDropped   atomic.Int64
	TriggersFired     atomic.Int64
	TriggerFailures   atomic.Int64
	SweepsSkipped     atomic.Int64
}

type Snapshot struct {
	DeliveriesSent    int64 `json:"deliveries_sent"`
	DeliveryFailures  int64 `json:"delivery_failures"`
	DeferredDelivered int64 `json:"deferred_delivered"`
	DeferredDropped   int64 `json:"deferred_dropped"`
	TriggersFired     int64 `json:"triggers_fired"`
	TriggerFailures   int64 `json:"trigger_failures"`
	SweepsSkipped     int64 `json:"sweeps_skipped"`
}

// Default is the process-wide counter set.
var Default = &Counters{}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		DeliveriesSent:    c.DeliveriesSent.Load(),
		DeliveryFailures:  c.DeliveryFailures.Load(),
		DeferredDelivered: c.DeferredDelivered.Load(),
		DeferredDropped:   c.DeferredDropped.Load(),
		TriggersFired:     c.TriggersFired.Load(),
		TriggerFailures:   c.TriggerFailures.Load(),
		SweepsSkipped:     c.SweepsSkipped.Load(),
	}
}
