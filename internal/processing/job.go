package processing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/recognize"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

type (
	JobKind  int
	JobState int

	// Job represents a single piece of audio working it's way from a
	// Telegram attachment to a transcript. The progress message is the
	// reply the bot sent when the job was enqueued; it is edited in place
	// as the job moves through it's states.
	Job struct {
		ID                uuid.UUID
		Kind              JobKind
		ChatID            int64
		MessageID         int64
		ProgressMessageID int64
		FileID            string
		Duration          int
		EnqueuedAt        time.Time

		State   JobState
		Trouble *Trouble
		Result  *recognize.Transcript
	}
)

const (
	VOICE JobKind = iota
	AUDIO
)

const (
	IDLE JobState = iota
	DOWNLOADING
	CONVERTING
	RECOGNIZING
	COMPLETE
	TROUBLED
)

var (
	ErrJobNotFound = errors.New("no transcription job could be found")
)

// Stage texts shown to the user via the progress message; the final edit
// replaces them with the transcript or a failure notice.
const (
	msgDownloading = "🔍 Downloading audio..."
	msgConverting  = "🔄 Converting audio..."
	msgRecognizing = "🎤 Recognising speech..."
	msgFailed      = "❌ Something went wrong while processing the audio"
)

// process runs the job through the full pipeline: download the source
// file from Telegram, normalise it to WAV, transcribe it, and report the
// result back to the chat. Any stage can fail; failures are returned as
// a Trouble which the owning service raises on the job.
//
// State transitions are performed through the provided transition fn, and
// all other field writes through the mutate fn, so the owning service can
// synchronise them against concurrent snapshot reads.
func (job *Job) process(
	ctx context.Context,
	downloader downloader,
	normaliser normaliser,
	transcriber recognize.Transcriber,
	notifier progressNotifier,
	transition func(*Job, JobState),
	mutate func(*Job, func()),
) error {
	transition(job, DOWNLOADING)
	notifier.UpdateProgress(ctx, job, msgDownloading)

	file, err := downloader.GetFile(ctx, job.FileID)
	if err != nil {
		return newTrouble(err, DOWNLOAD_FAILURE)
	}

	sourcePath, err := downloader.DownloadToTemp(ctx, file.FilePath)
	if err != nil {
		return newTrouble(err, DOWNLOAD_FAILURE)
	}
	defer cleanupFiles(sourcePath)

	transition(job, CONVERTING)
	notifier.UpdateProgress(ctx, job, msgConverting)

	wavPath, err := normaliser.NormaliseToWav(ctx, sourcePath)
	if err != nil {
		return newTrouble(err, CONVERSION_FAILURE)
	}
	defer cleanupFiles(wavPath)

	// Telegram omits the duration for some audio uploads; backfill it
	// from the stream metadata so the history record is complete.
	if job.Duration == 0 {
		if probed, err := normaliser.ProbeDuration(wavPath); err == nil {
			mutate(job, func() { job.Duration = probed })
		} else {
			log.Emit(logger.WARNING, "Failed to probe duration for job %s: %v\n", job, err)
		}
	}

	transition(job, RECOGNIZING)
	notifier.UpdateProgress(ctx, job, msgRecognizing)

	transcript, err := transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		return newTrouble(err, RECOGNITION_FAILURE)
	}

	mutate(job, func() { job.Result = transcript })
	notifier.UpdateProgress(ctx, job, transcript.Text)
	transition(job, COMPLETE)

	log.Emit(logger.SUCCESS, "Job %s complete\n", job)
	return nil
}

// cleanupFiles removes the given temporary files, tolerating paths that
// were never created.
func cleanupFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Emit(logger.WARNING, "Failed to remove temporary file '%s': %v\n", path, err)
		}
	}
}

func (job *Job) String() string {
	return fmt.Sprintf("Job{ID=%s kind=%s state=%s}", job.ID, job.Kind, job.State)
}

func (kind JobKind) String() string {
	switch kind {
	case VOICE:
		return "VOICE"
	case AUDIO:
		return "AUDIO"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", kind)
	}
}

func (state JobState) String() string {
	switch state {
	case IDLE:
		return fmt.Sprintf("IDLE[%d]", state)
	case DOWNLOADING:
		return fmt.Sprintf("DOWNLOADING[%d]", state)
	case CONVERTING:
		return fmt.Sprintf("CONVERTING[%d]", state)
	case RECOGNIZING:
		return fmt.Sprintf("RECOGNIZING[%d]", state)
	case COMPLETE:
		return fmt.Sprintf("COMPLETE[%d]", state)
	case TROUBLED:
		return fmt.Sprintf("TROUBLED[%d]", state)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", state)
	}
}
