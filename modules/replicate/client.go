// Package replicate is a minimal client for the Replicate predictions API,
// used as the optional remote enhancement provider.
package replicate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/legendx/enhancebot/common"
	"github.com/legendx/enhancebot/common/model"
)

// DefaultBaseURL is the public Replicate API endpoint.
const DefaultBaseURL = "https://api.replicate.com/v1"

// pollInterval is how often a pending prediction is re-checked. The overall
// wait is bounded by the caller's context, never by the poll loop itself.
const pollInterval = time.Second

// Client drives a single prediction per Enhance call: create, poll until a
// terminal status, download the output. One attempt, no retries; every
// failure is a plain error so the enhancement service can decide to fall
// back to the local pipeline.
type Client interface {
	Enhance(ctx context.Context, data []byte) ([]byte, error)
}

type client struct {
	baseURL    string
	modelID    string
	httpClient common.HttpClient
}

// NewClient constructs a Client authenticating with the given API token as a
// bearer token. modelID selects the version to run (e.g. an upscaler).
func NewClient(token, modelID string, userAgent string) Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	base := oauth2.NewClient(context.Background(), src)
	return &client{
		baseURL:    DefaultBaseURL,
		modelID:    modelID,
		httpClient: common.NewHttpClient(userAgent, base),
	}
}

// NewClientWithHTTP is the injection point for tests.
func NewClientWithHTTP(baseURL, modelID string, httpClient common.HttpClient) Client {
	return &client{baseURL: baseURL, modelID: modelID, httpClient: httpClient}
}

type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Output any    `json:"output,omitempty"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (c *client) Enhance(ctx context.Context, data []byte) ([]byte, error) {
	pred, err := c.createPrediction(ctx, data)
	if err != nil {
		return nil, err
	}

	for !terminal(pred.Status) {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("prediction %s: %w", pred.ID, ctx.Err())
		case <-time.After(pollInterval):
		}
		pred, err = c.getPrediction(ctx, pred)
		if err != nil {
			return nil, err
		}
	}

	if pred.Status != "succeeded" {
		return nil, fmt.Errorf("prediction %s ended %s: %s", pred.ID, pred.Status, pred.Error)
	}
	outputURL, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, fmt.Errorf("prediction %s: %w", pred.ID, err)
	}
	return c.download(ctx, outputURL)
}

func (c *client) createPrediction(ctx context.Context, data []byte) (*prediction, error) {
	payload := map[string]any{
		"version": c.modelID,
		"input": map[string]any{
			"image": "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction request: %w", err)
	}

	raw, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body),
		http.StatusCreated, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var pred prediction
	if err := model.JSONUnmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &pred, nil
}

func (c *client) getPrediction(ctx context.Context, prev *prediction) (*prediction, error) {
	url := prev.URLs.Get
	if url == "" {
		url = fmt.Sprintf("%s/predictions/%s", c.baseURL, prev.ID)
	}
	raw, err := c.doJSON(ctx, http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var pred prediction
	if err := model.JSONUnmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &pred, nil
}

func (c *client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &common.HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return io.ReadAll(resp.Body)
}

// doJSON performs one request and enforces the expected status codes.
func (c *client) doJSON(ctx context.Context, method, url string, body io.Reader, expectedStatus ...int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if !statusMatches(resp.StatusCode, expectedStatus) {
		return nil, &common.HTTPError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}

func statusMatches(statusCode int, expected []int) bool {
	for _, s := range expected {
		if statusCode == s {
			return true
		}
	}
	return false
}

func terminal(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// firstOutputURL handles the two shapes Replicate models return: a single
// URL string or a list of URL strings.
func firstOutputURL(output any) (string, error) {
	switch v := output.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("no output URL in prediction result")
}
