// Package pipeline orchestrates document processing from uploaded blob to
// stored rules or violations.
//
// The Pipeline type owns the per-document status state machine and runs
// each document through its stages:
//   - Policy documents: extract -> segment -> embed -> index -> extract rules
//   - Audit documents: extract -> segment -> embed -> index -> detect violations
//
// Runs execute asynchronously on a worker pool. A per-document lease
// guarantees at most one run per document at a time; triggering a document
// that is already running is a no-op. Stage failures move the document to
// the failed status with the stage and cause recorded on the record.
package pipeline
