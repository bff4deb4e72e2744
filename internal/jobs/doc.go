// Package jobs runs parse jobs asynchronously and tracks their state.
//
// A Manager allocates an identifier and a private output directory for each
// submitted Body, records it as pending, and hands it to a bounded pool of
// workers. Workers move the record through running to succeeded or failed.
// Every read and write of a record happens under the manager's mutex, and
// callers only ever see copies.
//
// Submissions never block: when the queue is full Submit returns ErrQueueFull
// and nothing is left behind. Bodies receive a context that is cancelled when
// the manager stops or the per-job deadline passes; bodies that ignore it
// still hold their worker until they return, but their record is already
// failed and the late outcome is discarded.
//
// An optional Recorder receives every transition so records survive restarts.
package jobs
