package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

// Probe extracts stream metadata (duration, codec, bitrate) from the file
// at the given path using ffprobe.
func (normaliser *Normaliser) Probe(path string) (transcoder.Metadata, error) {
	cfg := ffmpeg.Config{
		FfmpegBinPath:  normaliser.config.FfmpegBinPath,
		FfprobeBinPath: normaliser.config.FfprobeBinPath,
	}

	metadata, err := ffmpeg.New(&cfg).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %s", err.Error())
	}

	return metadata, nil
}

// ProbeDuration returns the duration of the audio at the given path in
// whole seconds, rounded down.
func (normaliser *Normaliser) ProbeDuration(path string) (int, error) {
	metadata, err := normaliser.Probe(path)
	if err != nil {
		return 0, err
	}

	seconds, err := strconv.ParseFloat(metadata.GetFormat().GetDuration(), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported a non-numeric duration '%s' for '%s'", metadata.GetFormat().GetDuration(), path)
	}

	return int(seconds), nil
}
