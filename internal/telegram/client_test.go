package telegram_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
)

const testToken = "123:ABC"

func newTestClient(t *testing.T, handler http.HandlerFunc) *telegram.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return telegram.NewClient(telegram.Config{
		Token:              testToken,
		BaseURL:            server.URL,
		PollTimeoutSeconds: 1,
	})
}

func Test_GetUpdates_UnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/bot%s/getUpdates", testToken), r.URL.Path)
		require.Nil(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("offset"))

		fmt.Fprint(w, `{"ok":true,"result":[{"update_id":43,"message":{"message_id":7,"chat":{"id":100},"voice":{"file_id":"vf1","duration":3}}}]}`)
	})

	updates, err := client.GetUpdates(context.Background(), 42)
	require.Nil(t, err)
	require.Len(t, updates, 1)

	assert.Equal(t, int64(43), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, int64(100), updates[0].Message.Chat.ID)
	require.NotNil(t, updates[0].Message.Voice)
	assert.Equal(t, "vf1", updates[0].Message.Voice.FileID)
}

func Test_SendReply_ReturnsSentMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, r.ParseForm())
		assert.Equal(t, "100", r.PostForm.Get("chat_id"))
		assert.Equal(t, "7", r.PostForm.Get("reply_to_message_id"))
		assert.Equal(t, "hello", r.PostForm.Get("text"))

		fmt.Fprint(w, `{"ok":true,"result":{"message_id":8,"chat":{"id":100},"text":"hello"}}`)
	})

	message, err := client.SendReply(context.Background(), 100, 7, "hello")
	require.Nil(t, err)
	assert.Equal(t, int64(8), message.MessageID)
}

func Test_Invoke_SurfacesBotApiError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message not found"}`)
	})

	err := client.EditMessageText(context.Background(), 100, 999, "edited")
	require.NotNil(t, err)

	var failedErr *telegram.FailedRequestError
	require.ErrorAs(t, err, &failedErr)
	assert.Contains(t, err.Error(), "message not found")
}

func Test_DownloadToTemp_WritesFileContent(t *testing.T) {
	payload := []byte("OggS fake voice payload")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/file/bot%s/voice/file_1.oga", testToken), r.URL.Path)
		w.Write(payload)
	})

	path, err := client.DownloadToTemp(context.Background(), "voice/file_1.oga")
	require.Nil(t, err)
	t.Cleanup(func() { os.Remove(path) })

	content, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Equal(t, payload, content)
	assert.Equal(t, ".oga", path[len(path)-4:])
}

func Test_GetMe_ReturnsBotUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"username":"crossaut_bot"}}`)
	})

	user, err := client.GetMe(context.Background())
	require.Nil(t, err)
	assert.True(t, user.IsBot)
	assert.Equal(t, "crossaut_bot", user.Username)
}
