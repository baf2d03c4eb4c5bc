// Package pubsub provides the publish-subscribe backbone behind the session
// multiplexer's log and stats broadcasting.
//
// # Overview
//
// Exactly one subscriber reads a container's output from the runtime client,
// regardless of how many panel connections are attached to it. That reader
// publishes each line (or stats sample) to this package, which fans it out
// to every attached session and keeps a bounded backlog so a session that
// attaches mid-stream can replay recent history instead of starting blind.
//
// # Architecture
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│  Runtime     │     │   PubSub    │     │  Exec/Stats │
//	│  log reader  │────▶│   (this pkg)│────▶│  Session     │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                           │
//	                   Topic: instance-log:{id}
//	                   Topic: instance-stats:{id}
//	                   Topic: instance-state:{id}
//
// The default backend is in-memory, matching the spec's single-host
// deployment model. Setting a Redis address switches to a Redis-backed
// implementation, useful when more than one wings process shares a runtime.
//
// # Usage
//
// Initialize the pub/sub client:
//
//	ps := pubsub.NewMemoryPubSub()
//
// Publish an event:
//
//	err := ps.Publish(ctx, pubsub.InstanceLogTopic(containerID), &pubsub.LogLineEvent{
//		Type:        pubsub.EventTypeLogLine,
//		ContainerID: containerID,
//		Line:        line,
//	})
//
// Subscribe to events, replaying the backlog first:
//
//	for _, buffered := range ps.Backlog(ctx, pubsub.InstanceLogTopic(containerID)) {
//		// forward buffered line to the session
//	}
//	ch, unsub := ps.Subscribe(ctx, pubsub.InstanceLogTopic(containerID))
//	defer unsub()
//	for msg := range ch {
//		var event pubsub.LogLineEvent
//		json.Unmarshal(msg, &event)
//		// forward live line to the session
//	}
//
// # Topics
//
//   - instance-log:{container_id} - combined stdout/stderr lines
//   - instance-stats:{container_id} - periodic resource usage samples
//   - instance-state:{container_id} - lifecycle transitions
//
// # Event Types
//
// Each topic has a corresponding event type defined in events.go:
//   - LogLineEvent
//   - StatsSampleEvent
//   - StateChangeEvent
package pubsub
