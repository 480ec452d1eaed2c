package sonar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"github.com/sirupsen/logrus"
)

// Client is the one collaborator that talks to the Sonar GraphQL API.
// Everything above it treats responses as already-materialized JSON: retry,
// auth and timeouts live here and nowhere else.
type Client struct {
	endpoint   string
	apiKey     string
	maxRetries int
	http       *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.SonarConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type graphQLErrorEntry struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage     `json:"data"`
	Errors []graphQLErrorEntry `json:"errors"`
}

// Execute posts one GraphQL document and returns the raw data member.
// A non-200 status, malformed JSON or a populated errors array all mean the
// input is unavailable: the caller gets an error naming the operation and no
// partial data.
func (c *Client) Execute(ctx context.Context, query string, variables any) (json.RawMessage, error) {
	operation := OperationName(query)

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", operation, err)
	}

	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, retryable, err := c.post(ctx, operation, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == attempts {
			break
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 4))
		config.LogInfo(c.logger, "sonar", "Execute",
			fmt.Sprintf("retrying %s in %s", operation, sleep),
			map[string]any{"attempt": attempt, "error": err.Error()})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, lastErr
}

// post performs one round trip. The second return value reports whether the
// failure is worth retrying: transport errors and 5xx are, GraphQL-level
// errors and 4xx are not.
func (c *Client) post(ctx context.Context, operation string, payload []byte) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("%s: api error %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("%s: invalid json response: %w", operation, err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, false, fmt.Errorf("%s: graphql errors: %s", operation, strings.Join(messages, "; "))
	}
	if parsed.Data == nil {
		return nil, false, fmt.Errorf("%s: response carried no data", operation)
	}
	return parsed.Data, false, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
