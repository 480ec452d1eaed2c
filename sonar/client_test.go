package sonar_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"bitbucket.org/mmdatafocus/sonar_removals/sonar"
)

func testConfig(endpoint string) config.SonarConfig {
	return config.SonarConfig{
		Endpoint:       endpoint,
		APIKey:         "test-key",
		Timeout:        5 * time.Second,
		MaxRetries:     1,
		RecordsPerPage: 100,
	}
}

func TestClientExecute_Success(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"accounts": {"entities": []}}}`))
	}))
	defer server.Close()

	client := sonar.NewClient(testConfig(server.URL), nil)
	data, err := client.Execute(context.Background(), sonar.QueryGetAccounts, sonar.AccountsVariables(100))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(string(data), "accounts") {
		t.Errorf("expected raw data member, got %s", data)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected json content type, got %q", gotContentType)
	}
	if !strings.Contains(gotBody.Query, "getAccounts") {
		t.Errorf("request body missing query document")
	}
	if gotBody.Variables["paginator"] == nil {
		t.Errorf("request body missing paginator variable")
	}
}

func TestClientExecute_GraphQLErrorsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data": null, "errors": [{"message": "Unauthenticated"}, {"message": "Bad field"}]}`))
	}))
	defer server.Close()

	client := sonar.NewClient(testConfig(server.URL), nil)
	_, err := client.Execute(context.Background(), sonar.QueryGetAccounts, nil)
	if err == nil {
		t.Fatalf("expected error from errors array")
	}
	if !strings.Contains(err.Error(), "Unauthenticated") || !strings.Contains(err.Error(), "Bad field") {
		t.Errorf("error must carry all messages, got %v", err)
	}
	if !strings.Contains(err.Error(), "getAccounts") {
		t.Errorf("error must name the operation, got %v", err)
	}
	if calls != 1 {
		t.Errorf("graphql-level errors must not be retried, got %d calls", calls)
	}
}

func TestClientExecute_ClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := sonar.NewClient(testConfig(server.URL), nil)
	if _, err := client.Execute(context.Background(), sonar.QueryInventoryModels, nil); err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if calls != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls)
	}
}

func TestClientExecute_ServerErrorRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": {"inventory_models": {"entities": []}}}`))
	}))
	defer server.Close()

	client := sonar.NewClient(testConfig(server.URL), nil)
	if _, err := client.Execute(context.Background(), sonar.QueryInventoryModels, nil); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestClientExecute_NullDataIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null}`))
	}))
	defer server.Close()

	client := sonar.NewClient(testConfig(server.URL), nil)
	if _, err := client.Execute(context.Background(), sonar.QueryInventoryModels, nil); err == nil {
		t.Fatalf("expected error when response carries no data")
	}
}

func TestClientExecute_ContextCancelStopsRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 5
	client := sonar.NewClient(cfg, nil)

	start := time.Now()
	_, err := client.Execute(ctx, sonar.QueryInventoryModels, nil)
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation must cut the retry loop short, took %s", elapsed)
	}
}
