package recognize

import "context"

type (
	// Transcript is the output of a recognition pass over a normalised
	// WAV file.
	Transcript struct {
		Text     string
		Language string
	}

	// Transcriber turns a normalised WAV file in to text. The processing
	// pipeline depends only on this interface, so a real speech-to-text
	// engine can replace the demo one without touching the pipeline.
	Transcriber interface {
		Transcribe(ctx context.Context, wavPath string) (*Transcript, error)
	}
)

// demoTranscriber is the placeholder engine: it exercises the full
// download/conversion pipeline and responds with a canned walkthrough
// instead of recognised text.
type demoTranscriber struct{}

func NewDemoTranscriber() Transcriber {
	return &demoTranscriber{}
}

const demoResult = `🎤 Demo recognition result

✅ Audio processed successfully!
✅ Conversion completed
✅ The bot is working correctly

🌍 In the full version the recognised text would appear here, in Ukrainian, Russian or English.

💡 Plug in a speech recognition engine for full functionality.`

func (transcriber *demoTranscriber) Transcribe(_ context.Context, _ string) (*Transcript, error) {
	return &Transcript{Text: demoResult, Language: "demo"}, nil
}
