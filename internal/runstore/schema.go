package runstore

import "fmt"

// Redis key pattern helpers
//
// Key pattern: pricepipe:{namespace}:run:{run_id}
// Channel pattern: pricepipe:{namespace}:run_events

// RunKey returns the Redis key for a run record hash.
func RunKey(namespace, runID string) string {
	return fmt.Sprintf("pricepipe:%s:run:%s", namespace, runID)
}

// RunKeyPrefix is RunKey without the run ID.
func RunKeyPrefix(namespace string) string {
	return fmt.Sprintf("pricepipe:%s:run:", namespace)
}

// RunsIndexKey returns the Redis key for the sorted set of run IDs.
func RunsIndexKey(namespace string) string {
	return fmt.Sprintf("pricepipe:%s:runs", namespace)
}

// RunEventsChannel returns the Pub/Sub channel carrying run record updates.
func RunEventsChannel(namespace string) string {
	return fmt.Sprintf("pricepipe:%s:run_events", namespace)
}
