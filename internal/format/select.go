package format

import (
	"strings"

	"github.com/ytget/mediadl/internal/model"
)

// ChainSeparator joins fallback links in the selection expression
const ChainSeparator = "/"

// Select computes the FormatSpec for req. metadata may be nil, in which
// case the chain is returned unresolved.
func Select(metadata *model.MediaMetadata, req model.DownloadRequest) model.FormatSpec {
	req = req.Normalized()

	var spec model.FormatSpec
	if req.IsAudio() {
		spec.Candidates = AudioChain()
		spec.PostProcess = model.ExtractAudioMP3()
	} else {
		spec.Candidates = VideoChain(req.Quality.Height())
		spec.PostProcess = model.ConvertToMP4()
	}
	spec.Expression = Expression(spec.Candidates)

	if metadata != nil {
		spec.Resolved = Resolve(metadata.Formats, spec.Candidates)
	}
	return spec
}

// AudioChain is m4a, then mp3, then any audio-only, then any combined stream
func AudioChain() []model.Candidate {
	return []model.Candidate{
		single(model.StreamAudio, 0, model.AudioContainerM4A),
		single(model.StreamAudio, 0, model.AudioContainerMP3),
		single(model.StreamAudio, 0, ""),
		single(model.StreamCombined, 0, ""),
	}
}

// VideoChain builds the video fallback chain. A positive maxHeight adds the
// capped links in front of the unconstrained ones.
func VideoChain(maxHeight int) []model.Candidate {
	if maxHeight <= 0 {
		return []model.Candidate{
			merge(model.VideoContainerMP4, 0, model.AudioContainerM4A),
			merge("", 0, ""),
			single(model.StreamCombined, 0, ""),
		}
	}
	return []model.Candidate{
		merge(model.VideoContainerMP4, maxHeight, model.AudioContainerM4A),
		merge("", maxHeight, ""),
		single(model.StreamCombined, maxHeight, ""),
		merge("", 0, ""),
		single(model.StreamCombined, 0, ""),
	}
}

// Expression renders a chain in yt-dlp selector syntax
func Expression(chain []model.Candidate) string {
	parts := make([]string, 0, len(chain))
	for _, c := range chain {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ChainSeparator)
}

// Resolve returns the first link of chain satisfied by formats, with the
// concrete streams it would pick, or nil if none is satisfied
func Resolve(formats []model.FormatDescriptor, chain []model.Candidate) *model.Resolution {
	if len(formats) == 0 {
		return nil
	}
	for i, c := range chain {
		primary, ok := pickBest(formats, c.Primary)
		if !ok {
			continue
		}
		res := &model.Resolution{Index: i, Primary: primary}
		if c.Audio != nil {
			audio, ok := pickBest(formats, *c.Audio)
			if !ok {
				continue
			}
			res.Audio = &audio
		}
		return res
	}
	return nil
}

func single(kind model.StreamKind, maxHeight int, container string) model.Candidate {
	return model.Candidate{Primary: model.StreamFilter{Kind: kind, MaxHeight: maxHeight, Container: container}}
}

func merge(videoContainer string, maxHeight int, audioContainer string) model.Candidate {
	return model.Candidate{
		Primary: model.StreamFilter{Kind: model.StreamVideo, MaxHeight: maxHeight, Container: videoContainer},
		Audio:   &model.StreamFilter{Kind: model.StreamAudio, Container: audioContainer},
	}
}
