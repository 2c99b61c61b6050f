package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// OpenAICompat calls any chat-completions compatible endpoint. Groq, Together
// and OpenRouter all speak this shape; only the base URL, model and key differ.
type OpenAICompat struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func NewOpenAICompat(name string, baseURL string, model string, apiKey string) *OpenAICompat {
	return &OpenAICompat{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (o *OpenAICompat) Name() string { return o.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAICompat) Invoke(ctx context.Context, instruction string, text string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", ctx.Err()
		}
		return "", &Error{Provider: o.name, Class: ClassTransient, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", classifyStatus(o.name, resp.StatusCode, string(slurp), resp.Header.Get("Retry-After"))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", &Error{Provider: o.name, Class: ClassTransient, Msg: "decode: " + err.Error()}
	}
	if len(cr.Choices) == 0 {
		return "", &Error{Provider: o.name, Class: ClassTransient, Msg: "empty choices"}
	}
	out := strings.TrimSpace(cr.Choices[0].Message.Content)
	if out == "" {
		return "", &Error{Provider: o.name, Class: ClassTransient, Msg: "empty completion"}
	}
	return out, nil
}
