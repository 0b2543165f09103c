// Package runstore persists pipeline run records.
//
// A run record tracks one invocation of the pipeline from preprocessing
// through registration: the stage it reached, its status, the split it
// produced and the evaluation outcome. The record doubles as the model
// registry entry, holding the approval status once the gate passes.
//
// Two stores are provided. RedisStore keeps records as hashes namespaced by
// a store namespace, indexes them in a sorted set by start time and
// publishes every write to a Pub/Sub channel:
//
//	pricepipe:{namespace}:run:{run_id}   hash
//	pricepipe:{namespace}:runs           sorted set, score = start time (ms)
//	pricepipe:{namespace}:run_events     channel, full record as JSON
//
// FileStore keeps all records in a single JSON file, replaced atomically on
// every write. It is the default when no Redis URL is configured.
package runstore
