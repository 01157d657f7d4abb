// Package aiclient talks to the AI sidecar service that performs
// transcription, clip description and text embedding. All calls are plain
// JSON over HTTP; responses are validated against the expected structure
// immediately and never trusted downstream.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"cuesens/models"
)

// requestTimeout bounds each sidecar call. Transcription of long takes is
// the slow path, so this is generous.
const requestTimeout = 5 * time.Minute

// Client is the HTTP client for the AI sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

func New(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

type transcribeRequest struct {
	MediaID string `json:"media_id"`
}

type transcribeResponse struct {
	Segments []models.TranscriptSegment `json:"segments"`
}

// Transcribe produces timestamped text segments for a stored media object.
func (c *Client) Transcribe(ctx context.Context, mediaID string) ([]models.TranscriptSegment, error) {
	c.log.WithField("media_id", mediaID).Info("Sending transcription request")

	var resp transcribeResponse
	if err := c.post(ctx, "/transcribe", transcribeRequest{MediaID: mediaID}, &resp); err != nil {
		return nil, err
	}
	if resp.Segments == nil {
		return nil, fmt.Errorf("transcription response for %s has no segments field", mediaID)
	}
	return resp.Segments, nil
}

type describeRequest struct {
	MediaID string `json:"media_id"`
}

// Describe analyzes one footage clip. It never fails: any transport or
// parse error is logged and converted into the neutral placeholder so a
// single bad clip cannot abort a whole analysis batch.
func (c *Client) Describe(ctx context.Context, mediaID string) models.ClipAnalysis {
	var analysis models.ClipAnalysis
	if err := c.post(ctx, "/describe", describeRequest{MediaID: mediaID}, &analysis); err != nil {
		c.log.WithField("media_id", mediaID).WithError(err).Warn("Clip analysis failed, using placeholder")
		return models.PlaceholderAnalysis()
	}
	if analysis.Description == "" {
		c.log.WithField("media_id", mediaID).Warn("Clip analysis returned empty description, using placeholder")
		return models.PlaceholderAnalysis()
	}
	if analysis.Keywords == nil {
		analysis.Keywords = []string{}
	}
	if analysis.Mood == "" {
		analysis.Mood = "unknown"
	}
	return analysis
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed returns one normalized-space vector per input text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var resp embedResponse
	if err := c.post(ctx, "/embed", embedRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unparseable %s response: %w", path, err)
	}
	return nil
}
