package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

const msgWelcome = `🎤 Speech recognition bot

📌 Send me:
• Voice messages
• Audio files

🌍 Supported languages:
• Ukrainian
• Russian
• English

Use /status to check the bot is alive.`

const (
	msgQueued                = "⏳ Audio received, queued for processing..."
	msgAlive                 = "✅ The bot is up and running!"
	msgVideoNotesUnsupported = "📹 Video note processing is still in development..."
)

// knownCommands maps each accepted command to it's handler; aliases point
// at the same handler.
var knownCommands = map[string]func(*botService, context.Context, *telegram.Message){
	"/start":  (*botService).handleWelcome,
	"/help":   (*botService).handleWelcome,
	"/status": (*botService).handleStatus,
	"/ping":   (*botService).handleStatus,
}

func isCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// handleCommand resolves the command token (tolerating the '@botname'
// suffix Telegram appends in group chats) and dispatches it. Unrecognised
// commands are answered with the closest known command, if any is a
// plausible match.
func (service *botService) handleCommand(ctx context.Context, message *telegram.Message) {
	command := strings.Fields(message.Text)[0]
	if at := strings.IndexRune(command, '@'); at != -1 {
		command = command[:at]
	}
	command = strings.ToLower(command)

	if handler, ok := knownCommands[command]; ok {
		handler(service, ctx, message)
		return
	}

	if suggestion := closestCommand(command); suggestion != "" {
		service.reply(ctx, message, fmt.Sprintf("🤔 Unknown command '%s'. Did you mean %s?", command, suggestion))
		return
	}

	service.reply(ctx, message, fmt.Sprintf("🤔 Unknown command '%s'. Try /help.", command))
}

func (service *botService) handleWelcome(ctx context.Context, message *telegram.Message) {
	service.reply(ctx, message, msgWelcome)
}

func (service *botService) handleStatus(ctx context.Context, message *telegram.Message) {
	text := msgAlive
	if count, err := service.stats.CountForChat(message.Chat.ID); err == nil && count > 0 {
		text = fmt.Sprintf("%s\n📊 Transcriptions for this chat so far: %d", msgAlive, count)
	} else if err != nil {
		log.Emit(logger.WARNING, "Failed to fetch transcription count for chat %d: %v\n", message.Chat.ID, err)
	}

	service.reply(ctx, message, text)
}

// closestCommand ranks the known commands by string similarity against
// the received token and returns the best match, or an empty string if
// nothing comes close enough to suggest.
func closestCommand(command string) string {
	metric := metrics.NewLevenshtein()

	best, bestSimilarity := "", 0.0
	for known := range knownCommands {
		if similarity := strutil.Similarity(command, known, metric); similarity > bestSimilarity {
			best, bestSimilarity = known, similarity
		}
	}

	if bestSimilarity < 0.5 {
		return ""
	}

	return best
}
