// Package engine provides the extraction/fetch engines the orchestrator
// drives. YtDlp runs the yt-dlp executable; Native downloads YouTube
// streams in-process through github.com/ytget/ytdlp/v2 and post-processes
// them with ffmpeg.
//
// Engines report only in-flight transfer events. The terminal event of a
// request belongs to the caller.
package engine
