package processing

import (
	"fmt"
)

type (
	TroubleType int

	// Trouble wraps the error that stopped a job, categorised by the
	// pipeline stage it occurred in. The category drives both the user
	// facing failure message and the API DTO.
	Trouble struct {
		error
		tType TroubleType
	}
)

const (
	DOWNLOAD_FAILURE TroubleType = iota
	CONVERSION_FAILURE
	RECOGNITION_FAILURE
	GENERIC_FAILURE
)

func newTrouble(err error, tType TroubleType) Trouble {
	return Trouble{error: err, tType: tType}
}

func (t *Trouble) Type() TroubleType { return t.tType }

// UserMessage is the text the progress message is edited to when a job
// fails with this trouble.
func (t *Trouble) UserMessage() string {
	switch t.tType {
	case DOWNLOAD_FAILURE:
		return "❌ Failed to download the audio file"
	case CONVERSION_FAILURE:
		return "❌ Failed to convert the audio"
	case RECOGNITION_FAILURE:
		return "❌ Failed to recognise speech in the audio"
	default:
		return msgFailed
	}
}

func (t TroubleType) String() string {
	switch t {
	case DOWNLOAD_FAILURE:
		return fmt.Sprintf("DOWNLOAD_FAILURE[%d]", t)
	case CONVERSION_FAILURE:
		return fmt.Sprintf("CONVERSION_FAILURE[%d]", t)
	case RECOGNITION_FAILURE:
		return fmt.Sprintf("RECOGNITION_FAILURE[%d]", t)
	default:
		return fmt.Sprintf("GENERIC_FAILURE[%d]", t)
	}
}
