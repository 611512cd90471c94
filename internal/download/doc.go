// Package download runs a DownloadRequest through the linear pipeline
// validate, ensure destination, probe, select, fetch and classify, ending
// in exactly one Outcome. Progress flows from the engine through a
// progress.Tracker into the caller's Mailbox.
package download
