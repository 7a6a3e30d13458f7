package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appErr "runpad/pkg/errors"
)

const defaultTimeout = 15 * time.Second

// Config holds the external judge endpoints and credentials.
type Config struct {
	// CreateURL is the base URL used to submit code, e.g. "https://judge0-ce.p.rapidapi.com"
	CreateURL string `yaml:"createURL"`
	// ReadURL is the base URL used to fetch results by token. Some deployments
	// serve reads from a different host than writes.
	ReadURL      string        `yaml:"readURL"`
	RapidAPIKey  string        `yaml:"rapidAPIKey"`
	RapidAPIHost string        `yaml:"rapidAPIHost"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Client is a thin HTTP wrapper around the external judge service.
// It performs no retries; a single failure surfaces to the caller.
type Client struct {
	createURL string
	readURL   string
	apiKey    string
	apiHost   string
	http      *http.Client
}

// Status is the judge's execution status for a submission.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the current snapshot of a judged submission.
// Stdout is base64-encoded; nullable fields stay nil until the job ran.
type Result struct {
	Stdout    *string `json:"stdout"`
	Time      *string `json:"time"`
	Memory    *int64  `json:"memory"`
	Status    Status  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type createRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type createResponse struct {
	Token string `json:"token"`
}

// NewClient creates a judge client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.CreateURL == "" {
		return nil, fmt.Errorf("judge create URL is required")
	}
	if cfg.ReadURL == "" {
		cfg.ReadURL = cfg.CreateURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		createURL: strings.TrimRight(cfg.CreateURL, "/"),
		readURL:   strings.TrimRight(cfg.ReadURL, "/"),
		apiKey:    cfg.RapidAPIKey,
		apiHost:   cfg.RapidAPIHost,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Create submits code for execution and returns the judge token.
// Source and stdin must already be base64-encoded.
func (c *Client) Create(ctx context.Context, languageID int, sourceB64, stdinB64 string) (string, error) {
	body, err := json.Marshal(createRequest{
		LanguageID: languageID,
		SourceCode: sourceB64,
		Stdin:      stdinB64,
	})
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeUnavailable, "encode judge request failed")
	}

	url := c.createURL + "/submissions?base64_encoded=true&fields=*"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeUnavailable, "build judge request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeUnavailable, "judge create call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", appErr.Newf(appErr.JudgeUnavailable, "judge create returned status %d", resp.StatusCode)
	}

	var created createResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&created); err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeUnavailable, "decode judge create response failed")
	}
	if created.Token == "" {
		return "", appErr.New(appErr.JudgeTokenMissing)
	}
	return created.Token, nil
}

// Read fetches the current status and results for a token.
func (c *Client) Read(ctx context.Context, token string) (Result, error) {
	if token == "" {
		return Result{}, appErr.ValidationError("token", "required")
	}

	url := fmt.Sprintf("%s/submissions/%s?base64_encoded=true&fields=*", c.readURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, appErr.Wrapf(err, appErr.JudgeUnavailable, "build judge request failed")
	}
	c.setAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, appErr.Wrapf(err, appErr.JudgeUnavailable, "judge read call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, appErr.Newf(appErr.JudgeUnavailable, "judge read returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&result); err != nil {
		return Result{}, appErr.Wrapf(err, appErr.JudgeUnavailable, "decode judge read response failed")
	}
	return result, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}
}
