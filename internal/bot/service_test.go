package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/bot"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/processing"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

func init() {
	logger.SetMinLoggingLevel(logger.FATAL.Level())
}

type sentReply struct {
	chatID  int64
	replyTo int64
	text    string
}

// fakeClient serves scripted update batches; once drained, polls block
// briefly and return nothing, mimicking an idle long poll.
type fakeClient struct {
	sync.Mutex
	batches     [][]telegram.Update
	pollErrors  int
	replies     []sentReply
	offsets     []int64
	nextReplyID int64
}

func (fake *fakeClient) GetMe(_ context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, IsBot: true, Username: "crossaut_bot"}, nil
}

func (fake *fakeClient) GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	fake.Lock()
	fake.offsets = append(fake.offsets, offset)
	if fake.pollErrors > 0 {
		fake.pollErrors--
		fake.Unlock()
		return nil, errors.New("test: poll failure")
	}

	if len(fake.batches) > 0 {
		batch := fake.batches[0]
		fake.batches = fake.batches[1:]
		fake.Unlock()
		return batch, nil
	}
	fake.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (fake *fakeClient) SendReply(_ context.Context, chatID int64, replyToMessageID int64, text string) (*telegram.Message, error) {
	fake.Lock()
	defer fake.Unlock()

	fake.nextReplyID++
	fake.replies = append(fake.replies, sentReply{chatID, replyToMessageID, text})
	return &telegram.Message{MessageID: 1000 + fake.nextReplyID, Chat: telegram.Chat{ID: chatID}, Text: text}, nil
}

func (fake *fakeClient) EditMessageText(_ context.Context, _ int64, _ int64, _ string) error {
	return nil
}

func (fake *fakeClient) sentReplies() []sentReply {
	fake.Lock()
	defer fake.Unlock()
	return append([]sentReply(nil), fake.replies...)
}

func (fake *fakeClient) seenOffsets() []int64 {
	fake.Lock()
	defer fake.Unlock()
	return append([]int64(nil), fake.offsets...)
}

type enqueuedJob struct {
	kind              processing.JobKind
	chatID            int64
	progressMessageID int64
	fileID            string
	duration          int
}

type fakeQueue struct {
	sync.Mutex
	jobs []enqueuedJob
}

func (fake *fakeQueue) Enqueue(kind processing.JobKind, chatID int64, messageID int64, progressMessageID int64, fileID string, duration int) *processing.Job {
	fake.Lock()
	defer fake.Unlock()

	fake.jobs = append(fake.jobs, enqueuedJob{kind, chatID, progressMessageID, fileID, duration})
	return &processing.Job{ChatID: chatID, MessageID: messageID, ProgressMessageID: progressMessageID, FileID: fileID}
}

func (fake *fakeQueue) enqueued() []enqueuedJob {
	fake.Lock()
	defer fake.Unlock()
	return append([]enqueuedJob(nil), fake.jobs...)
}

type fakeStats struct{ count int }

func (fake *fakeStats) CountForChat(_ int64) (int, error) { return fake.count, nil }

func startBot(t *testing.T, client *fakeClient, queue *fakeQueue, stats *fakeStats) {
	service := bot.New(bot.Config{PollBackoffSeconds: 0}, client, queue, stats)

	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer wg.Done()
		assert.Nil(t, service.Run(ctx))
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func textMessage(chatID int64, messageID int64, text string) *telegram.Message {
	return &telegram.Message{MessageID: messageID, Chat: telegram.Chat{ID: chatID}, Text: text}
}

func Test_VoiceMessage_EnqueuesJobWithProgressMessage(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 1, Message: &telegram.Message{
			MessageID: 7,
			Chat:      telegram.Chat{ID: 100},
			Voice:     &telegram.Voice{FileID: "vf1", Duration: 3},
		}},
	}}}
	queue := &fakeQueue{}
	startBot(t, client, queue, &fakeStats{})

	require.Eventually(t, func() bool { return len(queue.enqueued()) == 1 }, time.Second, 5*time.Millisecond)

	job := queue.enqueued()[0]
	assert.Equal(t, processing.VOICE, job.kind)
	assert.Equal(t, int64(100), job.chatID)
	assert.Equal(t, "vf1", job.fileID)
	assert.Equal(t, 3, job.duration)

	replies := client.sentReplies()
	require.Len(t, replies, 1)
	assert.Equal(t, int64(7), replies[0].replyTo)
	assert.Contains(t, replies[0].text, "queued")
	assert.Equal(t, int64(1001), job.progressMessageID)
}

func Test_AudioMessage_EnqueuesAudioJob(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 1, Message: &telegram.Message{
			MessageID: 9,
			Chat:      telegram.Chat{ID: 100},
			Audio:     &telegram.Audio{FileID: "af1", Duration: 30},
		}},
	}}}
	queue := &fakeQueue{}
	startBot(t, client, queue, &fakeStats{})

	require.Eventually(t, func() bool { return len(queue.enqueued()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, processing.AUDIO, queue.enqueued()[0].kind)
}

func Test_StartCommand_RepliesWithWelcome(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 1, Message: textMessage(100, 7, "/start")},
	}}}
	startBot(t, client, &fakeQueue{}, &fakeStats{})

	require.Eventually(t, func() bool { return len(client.sentReplies()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, client.sentReplies()[0].text, "Speech recognition bot")
}

func Test_StatusCommand_IncludesChatTranscriptionCount(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 1, Message: textMessage(100, 7, "/status")},
	}}}
	startBot(t, client, &fakeQueue{}, &fakeStats{count: 4})

	require.Eventually(t, func() bool { return len(client.sentReplies()) == 1 }, time.Second, 5*time.Millisecond)
	reply := client.sentReplies()[0]
	assert.Contains(t, reply.text, "up and running")
	assert.Contains(t, reply.text, "4")
}

func Test_UnknownCommand_SuggestsClosestMatch(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 1, Message: textMessage(100, 7, "/strat")},
	}}}
	startBot(t, client, &fakeQueue{}, &fakeStats{})

	require.Eventually(t, func() bool { return len(client.sentReplies()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, client.sentReplies()[0].text, "/start")
}

func Test_VideoNote_AcknowledgedAsUnsupported(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 1, Message: &telegram.Message{
			MessageID: 7,
			Chat:      telegram.Chat{ID: 100},
			VideoNote: &telegram.VideoNote{FileID: "vn1", Duration: 10},
		}},
	}}}
	queue := &fakeQueue{}
	startBot(t, client, queue, &fakeStats{})

	require.Eventually(t, func() bool { return len(client.sentReplies()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, client.sentReplies()[0].text, "development")
	assert.Empty(t, queue.enqueued())
}

func Test_PollLoop_AdvancesOffsetPastHandledUpdates(t *testing.T) {
	client := &fakeClient{batches: [][]telegram.Update{{
		{UpdateID: 41, Message: textMessage(100, 7, "/ping")},
		{UpdateID: 42, Message: textMessage(100, 8, "/ping")},
	}}}
	startBot(t, client, &fakeQueue{}, &fakeStats{})

	require.Eventually(t, func() bool {
		offsets := client.seenOffsets()
		return len(offsets) >= 2 && offsets[len(offsets)-1] == 43
	}, time.Second, 5*time.Millisecond)
}

func Test_PollLoop_RecoversFromTransportErrors(t *testing.T) {
	client := &fakeClient{
		pollErrors: 2,
		batches: [][]telegram.Update{{
			{UpdateID: 1, Message: textMessage(100, 7, "/ping")},
		}},
	}
	startBot(t, client, &fakeQueue{}, &fakeStats{})

	require.Eventually(t, func() bool { return len(client.sentReplies()) == 1 }, time.Second, 5*time.Millisecond)
}
