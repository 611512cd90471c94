// Package history keeps an audit log of finished requests in SQLite.
// It is write-once per request and never drives retries or resumption.
package history
