// Package report holds the format-independent result of one collection
// run. A Model is built once by the aggregator, validated, and then only
// read by the renderers in pkg/output/writers.
package report
