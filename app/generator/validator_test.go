package generator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/head-hostile":
			// Rejects HEAD, serves GET.
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	validator := NewReferenceValidator("test-agent")

	tests := []struct {
		name       string
		path       string
		wantValid  bool
		wantStatus int
	}{
		{"reachable", "/ok", true, http.StatusOK},
		{"not found", "/missing", false, http.StatusNotFound},
		{"head rejected get accepted", "/head-hostile", true, http.StatusOK},
		{"redirect followed", "/moved", true, http.StatusOK},
		{"server error", "/broken", false, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(context.Background(), server.URL+tt.path)
			if result.Valid != tt.wantValid {
				t.Errorf("expected valid=%v, got %+v", tt.wantValid, result)
			}
			if result.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, result.StatusCode)
			}
		})
	}
}

func TestValidateUnreachableHost(t *testing.T) {
	validator := NewReferenceValidator("test-agent")

	result := validator.Validate(context.Background(), "http://127.0.0.1:1/nothing")
	if result.Valid {
		t.Error("expected unreachable host to be invalid")
	}
	if result.Error == "" {
		t.Error("expected an error category")
	}
}

func TestValidateTooManyRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	validator := NewReferenceValidator("test-agent")

	result := validator.Validate(context.Background(), server.URL+"/loop")
	if result.Valid {
		t.Error("expected redirect loop to be invalid")
	}
	if result.Error != "too many redirects" {
		t.Errorf("expected redirect error category, got %q", result.Error)
	}
}

func TestValidateAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	urls := []string{
		server.URL + "/a",
		server.URL + "/bad",
		server.URL + "/b",
	}
	validator := NewReferenceValidator("test-agent")

	results := validator.ValidateAll(context.Background(), urls)
	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d out of order: %q", i, r.URL)
		}
	}
	if !results[0].Valid || results[1].Valid || !results[2].Valid {
		t.Errorf("unexpected validity pattern: %+v", results)
	}
}
