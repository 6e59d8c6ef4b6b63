// Package extractor calls a remote vision model service that reads order
// confirmations out of screenshots.
package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

// DefaultTimeout bounds one extraction call; vision models are slow
const DefaultTimeout = 60 * time.Second

const maxErrorBody = 512

// Client implements domain.Extractor over HTTP
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new extraction client
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "extractor").Logger(),
	}
}

// extractRequest is the body sent to the extraction service
type extractRequest struct {
	Prompt   string `json:"prompt"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // Base64 encoded image
}

// extractResponse is the body returned by the extraction service
type extractResponse struct {
	Records []domain.ExtractedRecord `json:"records"`
	Error   *string                  `json:"error"`
}

// Extract sends one image with prompt and returns the records the model found
func (c *Client) Extract(ctx context.Context, image domain.Image, prompt string) ([]domain.ExtractedRecord, error) {
	if len(image.Data) == 0 {
		return nil, fmt.Errorf("%w: image %s is empty", domain.ErrInvalidInput, image.Name)
	}

	mimeType := image.ContentType
	if mimeType == "" {
		mimeType = http.DetectContentType(image.Data)
	}

	jsonData, err := json.Marshal(extractRequest{
		Prompt:   prompt,
		FileName: image.Name,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(image.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.log.Debug().
		Str("file", image.Name).
		Int("bytes", len(image.Data)).
		Msg("Calling extraction service")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fmt.Errorf("extraction service returned %d: %s", httpResp.StatusCode, msg)
	}

	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("extraction failed: %s", *resp.Error)
	}

	c.log.Debug().
		Str("file", image.Name).
		Int("records", len(resp.Records)).
		Msg("Extraction service call successful")

	return resp.Records, nil
}
