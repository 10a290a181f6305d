package ground

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

const defaultRequestTimeout = 60 * time.Second

// RESTClient talks to a grounding service exposing POST /ground and
// POST /annotate endpoints. It implements both Oracle and Annotator.
type RESTClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *logger.Logger
}

// RESTClientParams contains configuration options for creating a RESTClient.
type RESTClientParams struct {
	BaseURL string
	Timeout time.Duration
	Log     *logger.Logger
}

// NewRESTClient creates a client for the grounding service at BaseURL.
func NewRESTClient(params RESTClientParams) (*RESTClient, error) {
	u, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse grounding service url: %w", err)
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	log := params.Log
	if log == nil {
		log = logger.Nop()
	}

	return &RESTClient{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

type groundRequest struct {
	Text       string   `json:"text"`
	Namespaces []string `json:"namespaces,omitempty"`
	Context    string   `json:"context,omitempty"`
}

type groundResponse struct {
	Matches []ScoredCandidate `json:"matches"`
}

type annotateRequest struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

type annotateResponse struct {
	Annotations []Annotation `json:"annotations"`
}

// Ground implements Oracle against the service's /ground endpoint. Candidates
// come back ordered by descending score.
func (c *RESTClient) Ground(ctx context.Context, text string, namespaces []string, contextText string) ([]ScoredCandidate, error) {
	var resp groundResponse
	err := c.post(ctx, "/ground", groundRequest{
		Text:       text,
		Namespaces: namespaces,
		Context:    contextText,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Annotate implements Annotator against the service's /annotate endpoint.
func (c *RESTClient) Annotate(ctx context.Context, text string, contextText string) ([]Annotation, error) {
	var resp annotateResponse
	err := c.post(ctx, "/annotate", annotateRequest{
		Text:    text,
		Context: contextText,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Annotations, nil
}

func (c *RESTClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	endpoint := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("call %s: status %d: %s", endpoint, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
