// Package ingestion loads OCR corpus files into a persistent corpus repository.
//
// The Pipeline reads a corpus CSV and writes its spans in batches. Spans stored
// earlier for the same source documents are removed once every batch is in; a
// failed ingestion removes what it wrote and leaves the earlier spans alone.
// Each write is retried with exponential backoff to ride out BadgerDB transaction
// conflicts when several ingestions share one database.
//
// When a CheckpointRepository is configured, the pipeline records a content
// fingerprint per ingested file and skips files whose content has not changed.
package ingestion
