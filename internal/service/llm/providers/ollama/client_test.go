package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Generate(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "a quiet street scene"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "qwen3-vl:8b")
	text, err := client.Generate(context.Background(), "describe this frame", [][]byte{[]byte("fakejpeg")}, 0.3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "a quiet street scene" {
		t.Errorf("Generate = %q", text)
	}

	if captured.Model != "qwen3-vl:8b" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.Stream {
		t.Error("stream should be false")
	}
	if len(captured.Images) != 1 || captured.Images[0] != "ZmFrZWpwZWc=" {
		t.Errorf("images not base64-encoded as expected: %v", captured.Images)
	}
	if captured.Options.Temperature != 0.3 {
		t.Errorf("temperature = %v", captured.Options.Temperature)
	}
}

func TestClient_GenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "qwen3-vl:8b")
	if _, err := client.Generate(context.Background(), "p", nil, 0); err == nil {
		t.Fatal("Generate succeeded on 500, want error")
	}
}
