package telegram

// Wire types for the subset of the Telegram Bot API this service
// consumes. See https://core.telegram.org/bots/api for the upstream
// definitions.
type (
	User struct {
		ID        int64  `json:"id"`
		IsBot     bool   `json:"is_bot"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	}

	Chat struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}

	Voice struct {
		FileID   string `json:"file_id"`
		Duration int    `json:"duration"`
		MimeType string `json:"mime_type"`
		FileSize int64  `json:"file_size"`
	}

	Audio struct {
		FileID   string `json:"file_id"`
		Duration int    `json:"duration"`
		MimeType string `json:"mime_type"`
		FileName string `json:"file_name"`
		FileSize int64  `json:"file_size"`
	}

	VideoNote struct {
		FileID   string `json:"file_id"`
		Duration int    `json:"duration"`
	}

	Message struct {
		MessageID int64      `json:"message_id"`
		From      *User      `json:"from"`
		Chat      Chat       `json:"chat"`
		Text      string     `json:"text"`
		Voice     *Voice     `json:"voice"`
		Audio     *Audio     `json:"audio"`
		VideoNote *VideoNote `json:"video_note"`
	}

	Update struct {
		UpdateID int64    `json:"update_id"`
		Message  *Message `json:"message"`
	}

	File struct {
		FileID   string `json:"file_id"`
		FilePath string `json:"file_path"`
		FileSize int64  `json:"file_size"`
	}
)
