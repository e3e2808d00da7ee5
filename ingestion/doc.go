// Package ingestion orchestrates the note intake pipeline.
//
// For each note the pipeline runs entity extraction and embedding
// concurrently against the configured AI provider, resolves extracted
// candidates to registry entities, and persists the note together with
// its mention rows in a single storage transaction.
//
// Sub-step failures degrade rather than fail: a note whose extraction
// or embedding call errors out (after one retry) is still persisted,
// with the failure reported as a warning on the result. Only validation
// errors, storage failures, and caller cancellation are hard errors.
//
// Entity creation during resolution commits independently of the note,
// so a note that ultimately fails to persist may still leave new
// entities in the registry. This is deliberate: entities are shared
// records, and a later ingest of the same name would recreate them
// anyway.
package ingestion
