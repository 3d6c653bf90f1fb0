package promotion

import "github.com/rotisserie/eris"

// ErrMissingLineage marks a row without a dataset-version or ingestion id.
// Lineage is mandatory for audit: any occurrence aborts the whole promotion
// run before writes begin.
var ErrMissingLineage = eris.New("row is missing mandatory lineage")

// ErrInsufficientIdentity marks a document carrying no strong identifier.
// It is handled per document: the document is skipped and counted, never
// fatal to the run.
var ErrInsufficientIdentity = eris.New("document carries no strong identifier")
