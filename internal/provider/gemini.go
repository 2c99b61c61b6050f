package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Gemini calls the Google Generative Language API. The API key travels in the
// query string, matching the official endpoint.
type Gemini struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func NewGemini(name string, baseURL string, model string, apiKey string) *Gemini {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (g *Gemini) Name() string { return g.name }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Invoke(ctx context.Context, instruction string, text string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: instruction + "\n\nText:\n" + text}},
		}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", ctx.Err()
		}
		return "", &Error{Provider: g.name, Class: ClassTransient, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", classifyStatus(g.name, resp.StatusCode, string(slurp), resp.Header.Get("Retry-After"))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", &Error{Provider: g.name, Class: ClassTransient, Msg: "decode: " + err.Error()}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Provider: g.name, Class: ClassTransient, Msg: "empty candidates"}
	}
	out := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	if out == "" {
		return "", &Error{Provider: g.name, Class: ClassTransient, Msg: "empty completion"}
	}
	return out, nil
}
