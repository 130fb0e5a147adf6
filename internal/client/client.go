// Package client talks to the quiz server over HTTP: it fetches mixed
// question sets, posts graded results and reads back a user's history.
// No caching, no retries; failures surface to the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ngochuy/onthisu/internal/model"
)

// ErrNetwork wraps transport-level failures so callers can tell them apart
// from server-reported errors.
var ErrNetwork = errors.New("network error")

// Client is a thin HTTP client for the quiz API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope is the server's JSON response wrapper.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

// Questions fetches a freshly mixed exam. Implements session.QuestionFetcher.
func (c *Client) Questions(ctx context.Context) ([]model.Question, error) {
	env, err := c.get(ctx, "/sheet/question")
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	if err := json.Unmarshal(env.Data, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

// Submit posts a graded result to the scoring endpoint and returns the
// stored record. Implements session.Submitter.
func (c *Client) Submit(ctx context.Context, r model.Result) (model.Result, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return model.Result{}, fmt.Errorf("encode result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score/submit", bytes.NewReader(body))
	if err != nil {
		return model.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.do(req)
	if err != nil {
		return model.Result{}, err
	}
	var saved model.Result
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		return model.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return saved, nil
}

// History returns a user's past results, newest first.
func (c *Client) History(ctx context.Context, userID string) ([]model.Result, error) {
	env, err := c.get(ctx, "/score/user/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	var results []model.Result
	if err := json.Unmarshal(env.Data, &results); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrNetwork, err)
	}
	if env.Code != "success" {
		msg := env.Message
		if env.Error != "" {
			msg = fmt.Sprintf("%s: %s", msg, env.Error)
		}
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, msg)
	}
	return &env, nil
}
