// Package platform contains OS integration and source glue: the supported
// host allow-list, playlist/video URL helpers, filesystem helpers, external
// tool lookup, and revealing a finished download in the file manager.
package platform
