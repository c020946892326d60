package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vladqvarvar-create/Crossaut-fire/internal/processing"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var log = logger.Get("Bot")

type (
	Config struct {
		// PollBackoffSeconds is how long the update loop pauses after a
		// failed getUpdates call before polling again.
		PollBackoffSeconds int `yaml:"poll_backoff" env:"BOT_POLL_BACKOFF" env-default:"10"`
	}

	botClient interface {
		GetMe(ctx context.Context) (*telegram.User, error)
		GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
		SendReply(ctx context.Context, chatID int64, replyToMessageID int64, text string) (*telegram.Message, error)
		EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error
	}

	jobQueue interface {
		Enqueue(kind processing.JobKind, chatID int64, messageID int64, progressMessageID int64, fileID string, duration int) *processing.Job
	}

	chatStats interface {
		CountForChat(chatID int64) (int, error)
	}

	// botService long-polls Telegram for updates and routes them: commands
	// are answered inline, audio attachments become transcription jobs
	// whose progress message this service edits on the pipelines behalf.
	botService struct {
		client botClient
		queue  jobQueue
		stats  chatStats
		config Config

		mu       sync.Mutex
		username string
	}
)

func New(config Config, client botClient, queue jobQueue, stats chatStats) *botService {
	return &botService{
		client: client,
		queue:  queue,
		stats:  stats,
		config: config,
	}
}

// Run validates the configured token by fetching the bot account, then
// long-polls for updates until the context is cancelled. Transport
// failures back off and resume rather than stopping the service (the
// original bots sleep-and-restart behaviour).
func (service *botService) Run(ctx context.Context) error {
	me, err := service.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with the Bot API: %w", err)
	}

	service.mu.Lock()
	service.username = me.Username
	service.mu.Unlock()
	log.Emit(logger.SUCCESS, "Authenticated as @%s, starting long-poll loop\n", me.Username)

	backoff := time.Duration(service.config.PollBackoffSeconds) * time.Second
	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := service.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			log.Emit(logger.ERROR, "Update poll failed: %v (retrying in %s)\n", err, backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}

			service.handleUpdate(ctx, update)
		}
	}
}

// Username returns the bot account name resolved during startup, or an
// empty string if the service has not authenticated yet.
func (service *botService) Username() string {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.username
}

// UpdateProgress implements the processing services notifier by editing
// the jobs progress message in place. Delivery is best effort.
func (service *botService) UpdateProgress(ctx context.Context, job *processing.Job, text string) {
	if err := service.client.EditMessageText(ctx, job.ChatID, job.ProgressMessageID, text); err != nil {
		log.Emit(logger.WARNING, "Failed to edit progress message for %s: %v\n", job, err)
	}
}

// handleUpdate routes a single update. Attachments win over text so a
// captioned audio file is still transcribed.
func (service *botService) handleUpdate(ctx context.Context, update telegram.Update) {
	message := update.Message
	if message == nil {
		return
	}

	switch {
	case message.Voice != nil:
		service.enqueueAttachment(ctx, message, processing.VOICE, message.Voice.FileID, message.Voice.Duration)
	case message.Audio != nil:
		service.enqueueAttachment(ctx, message, processing.AUDIO, message.Audio.FileID, message.Audio.Duration)
	case message.VideoNote != nil:
		service.reply(ctx, message, msgVideoNotesUnsupported)
	case isCommand(message.Text):
		service.handleCommand(ctx, message)
	}
}

// enqueueAttachment replies with the initial progress message and hands
// the attachment to the processing queue. Without the progress message
// there is nowhere to report results, so a failed reply drops the update
// rather than enqueueing an unreportable job.
func (service *botService) enqueueAttachment(ctx context.Context, message *telegram.Message, kind processing.JobKind, fileID string, duration int) {
	progress, err := service.reply(ctx, message, msgQueued)
	if err != nil {
		log.Emit(logger.ERROR, "Failed to send progress reply for chat %d: %v\n", message.Chat.ID, err)
		return
	}

	job := service.queue.Enqueue(kind, message.Chat.ID, message.MessageID, progress.MessageID, fileID, duration)
	log.Emit(logger.INFO, "Accepted %s attachment from chat %d as %s\n", kind, message.Chat.ID, job)
}

func (service *botService) reply(ctx context.Context, message *telegram.Message, text string) (*telegram.Message, error) {
	return service.client.SendReply(ctx, message.Chat.ID, message.MessageID, text)
}
