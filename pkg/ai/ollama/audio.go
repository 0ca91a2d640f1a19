package ollama

import (
	"context"
	"errors"
)

// GenerateAudioTranscription transcribes audio to text.
// Ollama has no transcription endpoint; audio broadcasts need the
// OpenAI-compatible adapter.
func (c *GraphOllamaClient) GenerateAudioTranscription(
	ctx context.Context,
	audio []byte,
	language string,
) (string, error) {
	return "", errors.New("audio transcription not supported by the ollama adapter")
}
