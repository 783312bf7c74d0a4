/*
Package events implements an in-process pub/sub Broker used to fan out
cluster, user, and container lifecycle events to any number of subscribers
(the API layer, log collector, or CLI watch commands).

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:    events.EventUserCreated,
		Message: "user alice provisioned",
	})

	for ev := range sub {
		// handle ev
	}

# Delivery semantics

Publish never blocks on a slow subscriber: each subscriber has a bounded
buffer (50 events), and broadcast drops an event for any subscriber whose
buffer is full rather than stalling the broker. Subscribers that need
guaranteed delivery should drain promptly or maintain their own durable
log (see pkg/logs for on-disk container log persistence, a separate
concern from this in-memory event bus).

# See also

  - pkg/cluster for node join/leave/suspect events
  - pkg/userdir for user lifecycle events
  - pkg/runtime and pkg/health for container events
  - pkg/batch for EventBatchProgress
*/
package events
