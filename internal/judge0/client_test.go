package judge0_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"runpad/internal/judge0"
	appErr "runpad/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *judge0.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := judge0.NewClient(judge0.Config{
		CreateURL:    server.URL,
		RapidAPIKey:  "test-key",
		RapidAPIHost: "judge0-ce.p.rapidapi.com",
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestCreateReturnsToken(t *testing.T) {
	t.Parallel()
	var captured struct {
		method  string
		path    string
		query   string
		key     string
		host    string
		payload map[string]interface{}
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.key = r.Header.Get("X-RapidAPI-Key")
		captured.host = r.Header.Get("X-RapidAPI-Host")
		_ = json.NewDecoder(r.Body).Decode(&captured.payload)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"d85cd024-1548-4165-96c7-7bc88673f194"}`))
	}))

	token, err := client.Create(context.Background(), 92, "cHJpbnQoMSk=", "c3RkaW4=")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if token != "d85cd024-1548-4165-96c7-7bc88673f194" {
		t.Fatalf("unexpected token %q", token)
	}
	if captured.method != http.MethodPost || captured.path != "/submissions" {
		t.Fatalf("unexpected request %s %s", captured.method, captured.path)
	}
	if captured.query != "base64_encoded=true&fields=*" {
		t.Fatalf("unexpected query %q", captured.query)
	}
	if captured.key != "test-key" || captured.host != "judge0-ce.p.rapidapi.com" {
		t.Fatalf("auth headers missing: key=%q host=%q", captured.key, captured.host)
	}
	if captured.payload["language_id"] != float64(92) {
		t.Fatalf("unexpected language_id %v", captured.payload["language_id"])
	}
	if captured.payload["source_code"] != "cHJpbnQoMSk=" {
		t.Fatalf("unexpected source_code %v", captured.payload["source_code"])
	}
}

func TestCreateMissingToken(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.Create(context.Background(), 92, "cHJpbnQoMSk=", "")
	if !appErr.Is(err, appErr.JudgeTokenMissing) {
		t.Fatalf("expected JudgeTokenMissing, got %v", err)
	}
}

func TestCreateUpstreamFailure(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Create(context.Background(), 92, "cHJpbnQoMSk=", "")
	if !appErr.Is(err, appErr.JudgeUnavailable) {
		t.Fatalf("expected JudgeUnavailable, got %v", err)
	}
}

func TestReadParsesResult(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions/tok-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{
			"stdout": "MQo=",
			"time": "0.002",
			"memory": 3172,
			"status": {"id": 3, "description": "Accepted"},
			"created_at": "2026-08-30T12:00:00.000Z"
		}`))
	}))

	result, err := client.Read(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if result.Stdout == nil || *result.Stdout != "MQo=" {
		t.Fatalf("unexpected stdout %v", result.Stdout)
	}
	if result.Time == nil || *result.Time != "0.002" {
		t.Fatalf("unexpected time %v", result.Time)
	}
	if result.Memory == nil || *result.Memory != 3172 {
		t.Fatalf("unexpected memory %v", result.Memory)
	}
	if result.Status.ID != 3 || result.Status.Description != "Accepted" {
		t.Fatalf("unexpected status %+v", result.Status)
	}
}

func TestReadPendingNullFields(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"stdout": null,
			"time": null,
			"memory": null,
			"status": {"id": 1, "description": "In Queue"},
			"created_at": "2026-08-30T12:00:00.000Z"
		}`))
	}))

	result, err := client.Read(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if result.Stdout != nil || result.Time != nil || result.Memory != nil {
		t.Fatalf("expected nil fields for pending job, got %+v", result)
	}
	if result.Status.Description != "In Queue" {
		t.Fatalf("unexpected status %q", result.Status.Description)
	}
}

func TestReadUpstreamFailure(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Read(context.Background(), "tok-1")
	if !appErr.Is(err, appErr.JudgeUnavailable) {
		t.Fatalf("expected JudgeUnavailable, got %v", err)
	}
}

func TestReadEmptyToken(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty token")
	}))

	_, err := client.Read(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNewClientRequiresCreateURL(t *testing.T) {
	t.Parallel()
	if _, err := judge0.NewClient(judge0.Config{}); err == nil {
		t.Fatal("expected error for missing create URL")
	}
}
