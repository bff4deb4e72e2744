// Package filestore persists uploaded source documents.
//
// Every upload receives a fresh identifier and an exclusive directory beneath
// the storage root; the bytes land in source<ext> inside it. Metadata lives in
// an Index: the in-memory index by default, or the SQLite catalog when durable
// records are configured. Lookups re-check the backing file so content removed
// out-of-band reads as absent.
package filestore
