package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/pkg/logging"

	"github.com/go-resty/resty/v2"
)

var (
	ErrRemoteCall   = errors.New("analysis API call failed")
	ErrInvalidImage = errors.New("image is not valid base64")
)

const featuresEndpoint = "/analyze/features/"

// AnalysisClient calls the remote analysis API. One resty client is kept per
// retry count so report types with different retry policies never share state.
type AnalysisClient struct {
	baseURL string
	timeout time.Duration

	mu      sync.Mutex
	clients map[int]*resty.Client
}

// NewAnalysisClient creates a client. A zero timeout leaves requests unbounded
// apart from the caller's context.
func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	return &AnalysisClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		clients: make(map[int]*resty.Client),
	}
}

func (c *AnalysisClient) clientFor(retries int) *resty.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[retries]; ok {
		return client
	}

	client := resty.New().
		SetBaseURL(c.baseURL).
		SetRetryCount(retries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if c.timeout > 0 {
		client.SetTimeout(c.timeout)
	}
	c.clients[retries] = client
	return client
}

type generateBody struct {
	Feature string              `json:"feature,omitempty"`
	Input   *models.RecordInput `json:"input,omitempty"`
}

// Generate posts the record's payload to the report type's endpoint and
// normalizes the response
func (c *AnalysisClient) Generate(ctx context.Context, req report.GenerateRequest) (*models.ReportData, error) {
	start := time.Now()
	resp, err := c.clientFor(req.Type.Retries).R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(generateBody{Feature: req.Features, Input: req.Input}).
		Post("/" + strings.TrimLeft(req.Type.Endpoint, "/"))

	raw, err := decodeResponse(resp, err)
	if err != nil {
		return nil, err
	}

	data, err := report.Normalize(raw)
	if err != nil {
		return nil, err
	}

	logging.Infof("Analysis API responded - domain: %s, type: %s, id: %s, elapsed: %s",
		req.Domain.Name, req.Type.Key, req.RecordID, time.Since(start).Round(time.Millisecond))
	return data, nil
}

// ExtractFeatures uploads a face photo and returns the feature description
// the report endpoints work from
func (c *AnalysisClient) ExtractFeatures(ctx context.Context, imageBase64 string) (string, error) {
	image, err := decodeImage(imageBase64)
	if err != nil {
		return "", err
	}

	resp, err := c.clientFor(0).R().
		SetContext(ctx).
		SetFileReader("file", "image.jpg", bytes.NewReader(image)).
		Post(featuresEndpoint)

	raw, err := decodeResponse(resp, err)
	if err != nil {
		return "", err
	}

	var features string
	if value, ok := raw["features"]; ok {
		_ = json.Unmarshal(value, &features)
	}
	if strings.TrimSpace(features) == "" {
		return "", fmt.Errorf("%w: response has no features", report.ErrUnrecognizedShape)
	}
	return features, nil
}

// decodeResponse turns a resty result into the raw JSON object, mapping
// transport failures, non-2xx statuses and {"error": ...} bodies to ErrRemoteCall
func decodeResponse(resp *resty.Response, err error) (map[string]json.RawMessage, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteCall, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteCall, resp.StatusCode(), truncate(resp.String(), 200))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", report.ErrUnrecognizedShape)
	}

	if value, ok := raw["error"]; ok {
		var msg string
		if json.Unmarshal(value, &msg) == nil && msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrRemoteCall, msg)
		}
	}
	return raw, nil
}

// decodeImage accepts raw base64 or a data URL
func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
