// Package report holds the point-in-time metrics snapshot of one host and
// the store that keeps exactly one snapshot live on the client.
//
// A Report is a tagged union over the metric groups the backend knows about
// (cpu, memory pools, sensor devices, drives, logical volumes) plus the plain
// text sections shown by the simple pages. It is immutable once decoded:
// refreshing replaces it wholesale.
//
// The wire format is the JSON emitted by GET /getReport. Group values keep
// the order in which the backend listed them, because that order is the
// fallback field order of a panel.
package report
