package engine

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ytget/mediadl/internal/model"
)

// yt-dlp flags
const (
	flagDumpJSON       = "-J"
	flagFlatPlaylist   = "--flat-playlist"
	flagNoPlaylist     = "--no-playlist"
	flagYesPlaylist    = "--yes-playlist"
	flagNoWarnings     = "--no-warnings"
	flagFormat         = "-f"
	flagOutput         = "-o"
	flagNewline        = "--newline"
	flagProgressTmpl   = "--progress-template"
	flagRetries        = "--retries"
	flagFragRetries    = "--fragment-retries"
	flagSkipFragments  = "--skip-unavailable-fragments"
	flagForceOverwrite = "--force-overwrites"
	flagContinue       = "--continue"
	flagNoContinue     = "--no-continue"
	flagLimitRate      = "--limit-rate"
	flagUserAgent      = "--user-agent"
	flagReferer        = "--referer"
	flagNoCheckCert    = "--no-check-certificates"
	flagGeoBypass      = "--geo-bypass"
	flagCookies        = "--cookies"
	flagWriteSubs      = "--write-subs"
	flagWriteAutoSubs  = "--write-auto-subs"
	flagSubLangs       = "--sub-langs"
	flagNoWriteSubs    = "--no-write-subs"
	flagNoAutoSubs     = "--no-write-auto-subs"
	flagExtractAudio   = "-x"
	flagAudioFormat    = "--audio-format"
	flagAudioQuality   = "--audio-quality"
	flagMergeFormat    = "--merge-output-format"
	flagRecodeVideo    = "--recode-video"
	flagFFmpegLocation = "--ffmpeg-location"
)

// ProgressPrefix marks machine-readable progress lines on stdout
const ProgressPrefix = "[progress]"

// ProgressTemplate makes yt-dlp print one parseable line per update.
// Missing values are printed as NA.
const ProgressTemplate = "download:" + ProgressPrefix +
	" %(progress.status)s %(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s"

// OutputTemplate returns <dir>/%(title)s.%(ext)s
func OutputTemplate(dir string) string {
	return filepath.Join(dir, model.OutputTemplateSuffix)
}

// BuildProbeArgs builds the metadata-only invocation
func BuildProbeArgs(url string, opts model.FetchOptions) []string {
	args := []string{flagDumpJSON, flagNoWarnings}
	if opts.Playlist {
		args = append(args, flagYesPlaylist, flagFlatPlaylist)
	} else {
		args = append(args, flagNoPlaylist)
	}
	args = append(args, sessionArgs(opts)...)
	return append(args, url)
}

// BuildFetchArgs builds the download invocation for spec
func BuildFetchArgs(url string, spec model.FormatSpec, opts model.FetchOptions, ffmpegLocation string) []string {
	args := []string{
		flagFormat, spec.Expression,
		flagOutput, outputTemplate(opts),
		flagNewline,
		flagProgressTmpl, ProgressTemplate,
		flagRetries, strconv.Itoa(opts.Retries),
		flagFragRetries, strconv.Itoa(opts.FragmentRetries),
	}
	if opts.SkipUnavailableFragments {
		args = append(args, flagSkipFragments)
	}
	if opts.Overwrite {
		args = append(args, flagForceOverwrite)
	}
	if opts.ContinuePartial {
		args = append(args, flagContinue)
	} else {
		args = append(args, flagNoContinue)
	}
	if opts.RateLimitBps > 0 {
		args = append(args, flagLimitRate, strconv.FormatInt(opts.RateLimitBps, 10))
	}
	if opts.Playlist {
		args = append(args, flagYesPlaylist)
	} else {
		args = append(args, flagNoPlaylist)
	}
	args = append(args, subtitleArgs(opts)...)
	args = append(args, sessionArgs(opts)...)
	args = append(args, postProcessArgs(spec.PostProcess)...)
	if ffmpegLocation != "" {
		args = append(args, flagFFmpegLocation, ffmpegLocation)
	}
	return append(args, url)
}

// sessionArgs are the request-identity flags shared by probe and fetch
func sessionArgs(opts model.FetchOptions) []string {
	var args []string
	if opts.UserAgent != "" {
		args = append(args, flagUserAgent, opts.UserAgent)
	}
	if opts.Referer != "" {
		args = append(args, flagReferer, opts.Referer)
	}
	if opts.NoCheckCertificate {
		args = append(args, flagNoCheckCert)
	}
	if opts.GeoBypass {
		args = append(args, flagGeoBypass)
	}
	if opts.CredentialBundlePath != "" {
		args = append(args, flagCookies, opts.CredentialBundlePath)
	}
	return args
}

func subtitleArgs(opts model.FetchOptions) []string {
	if !opts.WantsSubtitles() {
		return []string{flagNoWriteSubs, flagNoAutoSubs}
	}
	return []string{flagWriteSubs, flagWriteAutoSubs, flagSubLangs, strings.Join(opts.SubtitleLangs, ",")}
}

func postProcessArgs(pp model.PostProcess) []string {
	switch pp.Kind {
	case model.PostExtractAudio:
		return []string{
			flagExtractAudio,
			flagAudioFormat, pp.Codec,
			flagAudioQuality, strconv.Itoa(pp.BitrateKbps) + "K",
		}
	case model.PostConvertVideo:
		return []string{
			flagMergeFormat, pp.Container,
			flagRecodeVideo, pp.Container,
		}
	default:
		return nil
	}
}

func outputTemplate(opts model.FetchOptions) string {
	if opts.OutputTemplate != "" {
		return opts.OutputTemplate
	}
	return OutputTemplate(opts.DestinationDir)
}
