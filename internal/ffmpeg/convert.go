package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/floostack/transcoder/ffmpeg"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var log = logger.Get("FFmpeg")

type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY" env-default:"/usr/bin/ffmpeg"`
	FfprobeBinPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY" env-default:"/usr/bin/ffprobe"`

	// ConversionTimeoutSeconds bounds a single normalisation; voice notes
	// are short, so a stuck ffmpeg is a fault rather than a long job.
	ConversionTimeoutSeconds int `yaml:"conversion_timeout" env:"FFMPEG_CONVERSION_TIMEOUT" env-default:"30"`
}

// Normaliser converts the compressed audio Telegram serves (OGG/Opus,
// MP3, M4A...) in to the mono 16kHz signed 16-bit WAV that speech
// recognition engines expect.
type Normaliser struct {
	config Config
}

func NewNormaliser(config Config) *Normaliser {
	return &Normaliser{config: config}
}

// NormaliseToWav transcodes the file at inputPath, writing the result
// alongside it with a '.wav' suffix and returning the new path. The
// caller owns both files.
func (normaliser *Normaliser) NormaliseToWav(ctx context.Context, inputPath string) (string, error) {
	outputPath := inputPath + ".wav"

	timeout := time.Duration(normaliser.config.ConversionTimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	audioCodec := "pcm_s16le"
	audioChannels := 1
	audioRate := 16000
	skipVideo := true
	overwrite := true
	opts := ffmpeg.Options{
		AudioCodec:    &audioCodec,
		AudioChannels: &audioChannels,
		AudioRate:     &audioRate,
		SkipVideo:     &skipVideo,
		Overwrite:     &overwrite,
	}

	trans := ffmpeg.
		New(&ffmpeg.Config{
			ProgressEnabled: true,
			FfmpegBinPath:   normaliser.config.FfmpegBinPath,
			FfprobeBinPath:  normaliser.config.FfprobeBinPath,
		}).
		Input(inputPath).
		Output(outputPath).
		WithContext(&runCtx)

	progressChannel, err := trans.Start(opts)
	if err != nil {
		return "", parseFfmpegError(err)
	}

	// Voice clips convert in well under a second; progress is drained
	// purely to observe command completion.
	for range progressChannel {
	}

	if runCtx.Err() != nil {
		return "", fmt.Errorf("audio normalisation of '%s' exceeded %s timeout", inputPath, timeout)
	}

	log.Emit(logger.DEBUG, "Normalised '%s' -> '%s'\n", inputPath, outputPath)
	return outputPath, nil
}

// parseFfmpegError tries to pick out the relevant information from the HUGE
// output log ffmpeg produces on failure. The error contains lots of detail
// about how the binary was compiled; we just want the 'message' JSON that
// is encoded inside.
func parseFfmpegError(err error) error {
	messageMatcher := regexp.MustCompile(`(?s)message: ({.*})`)
	groups := messageMatcher.FindStringSubmatch(err.Error())
	if len(groups) == 0 {
		return err
	}

	var out map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(groups[1]), &out); jsonErr != nil {
		return errors.New(groups[1])
	}

	if ffmpegException, ok := out["error"].(map[string]interface{}); ok {
		if msg, ok := ffmpegException["string"].(string); ok {
			return errors.New(msg)
		}
	}

	return err
}
