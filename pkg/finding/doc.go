// Package finding holds the canonical vocabulary shared by every stage of
// the collection report: the ordered Severity enum, scan types, finding
// status, the normalized Finding record and per-severity Counts.
//
// Upstream scan types report severity in their own vocabularies. The
// per-scan-type tables in normalize.go map them onto Severity at ingestion
// time so that aggregation and rendering only ever see one vocabulary.
// A token missing from the table is a SchemaError, never a silent drop.
//
// Usage:
//
//	f, err := finding.Normalize(assetID, finding.Static, raw)
//	if err != nil {
//	    return err // *finding.SchemaError
//	}
package finding
