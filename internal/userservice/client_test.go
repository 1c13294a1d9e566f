package userservice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func staticToken(tok string) func(context.Context) string {
	return func(context.Context) string { return tok }
}

func TestGetCanvasToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/credentials/test-cognito-sub-123/canvas" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Service-Token"); got != "svc-key" {
			t.Errorf("Expected X-Service-Token 'svc-key', got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accessToken":"decrypted-canvas-token"}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, staticToken("svc-key"))
	token, err := client.GetCanvasToken(context.Background(), "test-cognito-sub-123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "decrypted-canvas-token" {
		t.Errorf("Expected decrypted token, got %q", token)
	}
}

func TestGetCanvasTokenNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, staticToken("svc-key"))
	_, err := client.GetCanvasToken(context.Background(), "nonexistent-user-999")

	var notFound *CredentialNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *CredentialNotFoundError, got %v", err)
	}
	if notFound.CognitoSub != "nonexistent-user-999" {
		t.Errorf("Expected cognitoSub in error, got %q", notFound.CognitoSub)
	}
}

func TestGetCanvasTokenServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, staticToken("svc-key"))
	_, err := client.GetCanvasToken(context.Background(), "sub-1")

	var unavailable *CredentialUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected *CredentialUnavailableError, got %v", err)
	}
}

func TestGetCanvasTokenTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := New(server.URL, 50*time.Millisecond, staticToken("svc-key"))
	_, err := client.GetCanvasToken(context.Background(), "sub-1")

	var unavailable *CredentialUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected *CredentialUnavailableError on timeout, got %v", err)
	}
}

func TestGetCanvasTokenEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accessToken":""}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, staticToken("svc-key"))
	_, err := client.GetCanvasToken(context.Background(), "sub-1")

	var notFound *CredentialNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *CredentialNotFoundError for empty token, got %v", err)
	}
}
