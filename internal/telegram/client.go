package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

type (
	Config struct {
		Token string `yaml:"token" env:"TELEGRAM_BOT_TOKEN" env-required:"true"`

		// BaseURL overrides the Bot API host; primarily for tests and
		// self-hosted Bot API servers.
		BaseURL string `yaml:"base_url" env:"TELEGRAM_API_BASE_URL"`

		// PollTimeoutSeconds is the long-poll timeout handed to getUpdates.
		PollTimeoutSeconds int `yaml:"poll_timeout" env:"TELEGRAM_POLL_TIMEOUT" env-default:"60"`
	}

	// apiResponse is the envelope every Bot API method responds with. On
	// failure 'ok' is false and the error code/description describe why.
	apiResponse struct {
		Ok          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
	}

	// Client is a typed client over the handful of Bot API methods the
	// bot requires. All blocking calls accept a context; the embedded
	// HTTP client timeout is sized to sit above the long-poll window.
	Client struct {
		config Config
		http   *http.Client
	}
)

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: time.Duration(config.PollTimeoutSeconds+30) * time.Second,
		},
	}
}

// GetMe fetches the bot account behind the configured token. Used at
// startup to fail early on a bad token, and to surface the bot username
// in the health endpoint.
func (client *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := client.invoke(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUpdates long-polls the Bot API for updates with an ID of at least
// 'offset'. The call blocks for up to the configured poll timeout when no
// updates are pending.
func (client *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	form := url.Values{
		"offset":  {strconv.FormatInt(offset, 10)},
		"timeout": {strconv.Itoa(client.config.PollTimeoutSeconds)},
	}

	var updates []Update
	if err := client.invoke(ctx, "getUpdates", form, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// SendReply sends 'text' to the chat as a reply to the given message.
func (client *Client) SendReply(ctx context.Context, chatID int64, replyToMessageID int64, text string) (*Message, error) {
	form := url.Values{
		"chat_id":             {strconv.FormatInt(chatID, 10)},
		"reply_to_message_id": {strconv.FormatInt(replyToMessageID, 10)},
		"text":                {text},
	}

	var message Message
	if err := client.invoke(ctx, "sendMessage", form, &message); err != nil {
		return nil, err
	}

	return &message, nil
}

// EditMessageText replaces the text of a previously sent message. The
// pipeline uses this to progress a single status message through the
// stages of a job rather than flooding the chat.
func (client *Client) EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error {
	form := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"message_id": {strconv.FormatInt(messageID, 10)},
		"text":       {text},
	}

	return client.invoke(ctx, "editMessageText", form, nil)
}

// GetFile resolves a file ID to a download path on Telegram's file host.
func (client *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	form := url.Values{"file_id": {fileID}}

	var file File
	if err := client.invoke(ctx, "getFile", form, &file); err != nil {
		return nil, err
	}

	return &file, nil
}

// DownloadToTemp streams the file at the given Bot API file path in to a
// newly created temporary file, returning it's path. The caller owns the
// file and is responsible for removing it.
func (client *Client) DownloadToTemp(ctx context.Context, filePath string) (string, error) {
	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", client.config.BaseURL, client.config.Token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to construct download request: %s", err.Error())}
	}

	resp, err := client.http.Do(req)
	if err != nil {
		return "", &UnknownRequestError{fmt.Sprintf("failed to download file '%s': %s", filePath, err.Error())}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FailedRequestError{httpCode: resp.StatusCode, description: "file download rejected"}
	}

	suffix := filepath.Ext(filePath)
	if suffix == "" {
		suffix = ".ogg"
	}

	tempFile, err := os.CreateTemp("", "crossaut-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for download: %w", err)
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to write download to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

// invoke performs a Bot API method call, unwrapping the response envelope
// in to 'target' (which may be nil for methods whose result is unused).
func (client *Client) invoke(ctx context.Context, method string, form url.Values, target interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", client.config.BaseURL, client.config.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, formBody(form))
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to construct request for %s: %s", method, err.Error())}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.http.Do(req)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to perform POST(%s) to Bot API: %s", method, err.Error())}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UnknownRequestError{fmt.Sprintf("failed to read response body for %s: %s", method, err.Error())}
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &UnknownRequestError{fmt.Sprintf("response for %s could not be unmarshalled: %s", method, err.Error())}
	}

	if !envelope.Ok {
		return &FailedRequestError{httpCode: resp.StatusCode, apiCode: envelope.ErrorCode, description: envelope.Description}
	}

	if target != nil {
		if err := json.Unmarshal(envelope.Result, target); err != nil {
			return &UnknownRequestError{fmt.Sprintf("result payload for %s could not be unmarshalled: %s", method, err.Error())}
		}
	}

	return nil
}

func formBody(form url.Values) io.Reader {
	if form == nil {
		return nil
	}

	return strings.NewReader(form.Encode())
}
