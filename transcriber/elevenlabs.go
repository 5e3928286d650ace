package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultElevenLabsModel = "scribe_v1"

// ElevenLabs sends a multipart upload to the scribe speech-to-text endpoint.
type ElevenLabs struct {
	client *TracedClient
	apiURL string
	apiKey string
	model  string
}

func NewElevenLabs(model, apiKey string) *ElevenLabs {
	if model == "" {
		model = defaultElevenLabsModel
	}
	apiURL := "https://api.elevenlabs.io/v1/speech-to-text"
	return &ElevenLabs{
		client: NewTracedClient(apiURL),
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) warm() { e.client.Warm() }

type elevenLabsResponse struct {
	Text         string  `json:"text"`
	LanguageCode string  `json:"language_code"`
	Probability  float64 `json:"language_probability"`
}

func (e *ElevenLabs) Transcribe(ctx context.Context, audio []byte, format, language string) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}

	writer.WriteField("model_id", e.model)
	if language != "" {
		writer.WriteField("language_code", language)
	}
	writer.WriteField("diarize", "false")
	writer.WriteField("tag_audio_events", "false")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, &apiError{provider: "elevenlabs", status: resp.StatusCode, body: string(resp.Body)}
	}

	var elResp elevenLabsResponse
	if err := json.Unmarshal(resp.Body, &elResp); err != nil {
		return nil, fmt.Errorf("elevenlabs response parse error: %w", err)
	}

	return &Result{
		Text:    strings.TrimSpace(elResp.Text),
		Metrics: resp.Metrics,
	}, nil
}
