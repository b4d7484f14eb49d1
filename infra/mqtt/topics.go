package mqtt

import "fmt"

// Topic layout of the simulation bus. Epoch messages are broadcast to every
// component, setpoint and status topics are per component, and resource
// states are grouped under the resource type.

// EpochTopic returns the broadcast topic for epoch messages.
func EpochTopic(prefix string) string {
	return fmt.Sprintf("%s/epoch", prefix)
}

// SetpointTopic returns the control state topic of a component.
func SetpointTopic(prefix, component string) string {
	return fmt.Sprintf("%s/controlstate/%s", prefix, component)
}

// ResourceStateTopic returns the topic a storage component publishes its
// state to.
func ResourceStateTopic(prefix, component string) string {
	return fmt.Sprintf("%s/resourcestate/storage/%s", prefix, component)
}

// StatusTopic returns the status topic of a component.
func StatusTopic(prefix, component string) string {
	return fmt.Sprintf("%s/status/%s", prefix, component)
}
