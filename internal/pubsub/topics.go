package pubsub

import "fmt"

// Topic constants and helper functions for subscription topics.
// Topics follow a hierarchical naming convention: {resource}:{id}

const (
	prefixInstanceLog   = "instance-log"
	prefixInstanceStats = "instance-stats"
	prefixInstanceState = "instance-state"
)

// InstanceLogTopic returns the topic carrying LogLineEvent messages for one
// container's combined stdout/stderr stream. Every exec session attached to
// the same container subscribes to the same topic, so the container is only
// read from the runtime once regardless of how many panels are watching it.
func InstanceLogTopic(containerID string) string {
	return fmt.Sprintf("%s:%s", prefixInstanceLog, containerID)
}

// InstanceStatsTopic returns the topic carrying StatsSampleEvent messages for
// one container's periodic resource usage sample.
func InstanceStatsTopic(containerID string) string {
	return fmt.Sprintf("%s:%s", prefixInstanceStats, containerID)
}

// InstanceStateTopic returns the topic carrying StateChangeEvent messages
// whenever a container transitions between lifecycle states.
func InstanceStateTopic(containerID string) string {
	return fmt.Sprintf("%s:%s", prefixInstanceState, containerID)
}
