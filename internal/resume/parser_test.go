package resume

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolioSaaS/internal/config"
	"portfolioSaaS/internal/profile"
)

func TestNewParserSelectsImplementation(t *testing.T) {
	if _, ok := NewParser(config.ResumeConfig{}, slog.Default()).(FallbackParser); !ok {
		t.Fatal("expected fallback parser when no endpoint is configured")
	}
	p := NewParser(config.ResumeConfig{ParserEndpoint: "http://parser.local/parse"}, slog.Default())
	if _, ok := p.(*RemoteParser); !ok {
		t.Fatalf("expected remote parser, got %T", p)
	}
}

func TestFallbackParserNeverFails(t *testing.T) {
	data, confidence, err := FallbackParser{}.Extract(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if confidence != 0.3 || data.Contact.Email != "you@example.com" {
		t.Fatalf("unexpected fallback result %v %+v", confidence, data)
	}
}

func TestRemoteParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "cv.pdf" || string(body) != "resume-bytes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":       profile.Data{Name: "Grace Hopper", Contact: profile.Contact{Email: "grace@example.com"}},
			"confidence": 1.7,
		})
	}))
	defer srv.Close()

	p := NewRemoteParser(srv.URL, "secret", time.Second)
	data, confidence, err := p.Extract(context.Background(), []byte("resume-bytes"), "/tmp/upload/cv.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if data.Name != "Grace Hopper" || data.Skills == nil {
		t.Fatalf("unexpected data %+v", data)
	}
	if confidence != 1 {
		t.Fatalf("confidence should be clamped, got %v", confidence)
	}
}

func TestRemoteParserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, _, err := NewRemoteParser(srv.URL, "", time.Second).Extract(context.Background(), []byte("x"), "cv.pdf"); err == nil {
		t.Fatal("expected error on upstream failure")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{},"confidence":0.9}`))
	}))
	defer empty.Close()

	if _, _, err := NewRemoteParser(empty.URL, "", time.Second).Extract(context.Background(), []byte("x"), "cv.pdf"); err == nil {
		t.Fatal("expected error on empty profile")
	}
}

func TestClampConfidence(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0.42: 0.42, 3: 1}
	for in, want := range cases {
		if got := clampConfidence(in); got != want {
			t.Fatalf("clampConfidence(%v) = %v, want %v", in, got, want)
		}
	}
}
