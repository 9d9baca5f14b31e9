package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("boom"))
			return
		}
		resp := ChatResponse{
			Choices: []ChatChoice{
				{Message: Message{Role: "assistant", Content: reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_ChatWithMessages(t *testing.T) {
	srv := chatServer(t, "hello back", http.StatusOK)
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", time.Second)

	reply, err := client.ChatWithMessages(context.Background(), []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
	}, ChatParams{Temperature: 0.7})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}
	if reply != "hello back" {
		t.Errorf("reply = %q, want %q", reply, "hello back")
	}
}

func TestClient_ChatBadStatus(t *testing.T) {
	srv := chatServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", time.Second)

	_, err := client.Chat(context.Background(), "hello")
	if err == nil {
		t.Fatal("Chat() expected error on 500")
	}
	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Status != http.StatusInternalServerError {
		t.Errorf("error = %v, want CallError with status 500", err)
	}
}

func TestClient_ChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", time.Second)

	if _, err := client.Chat(context.Background(), "hello"); err == nil {
		t.Fatal("Chat() expected error for empty choices")
	}
}

func TestClient_ChatTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", 10*time.Millisecond)

	_, err := client.Chat(context.Background(), "hello")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestClient_ZeroTemperatureStaysOnWire(t *testing.T) {
	var payload map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "ok"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", time.Second)

	_, err := client.ChatWithMessages(context.Background(), []Message{
		{Role: "user", Content: "hello"},
	}, ChatParams{Temperature: 0})
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}

	raw, ok := payload["temperature"]
	if !ok {
		t.Fatal("temperature missing from request payload")
	}
	if string(raw) != "0" {
		t.Errorf("temperature = %s, want 0", raw)
	}
}
