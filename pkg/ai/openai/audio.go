package openai

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/survivornet/beacon/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateAudioTranscription transcribes audio data to text using the
// configured audio model. The language parameter is optional and can be
// used to hint the expected language.
func (c *GraphOpenAIClient) GenerateAudioTranscription(
	ctx context.Context,
	audio []byte,
	language string,
) (string, error) {
	client := c.AudioClient
	if client == nil {
		return "", fmt.Errorf("audio client not configured")
	}

	params := openai.AudioTranscriptionNewParams{
		File:  bytes.NewReader(audio),
		Model: openai.AudioModel(c.audioModel),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	transcription, err := client.Audio.Transcriptions.New(rCtx, params)
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	// OpenAI doesn't return token usage for audio.
	c.modifyMetrics(ai.ModelMetrics{
		DurationMs: duration,
	})

	return transcription.Text, nil
}
