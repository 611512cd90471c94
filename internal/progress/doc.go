// Package progress normalizes raw engine transfer callbacks into monotonic
// ProgressEvents and hands the latest one to presentation through a
// single-slot mailbox that never blocks the transfer.
package progress
