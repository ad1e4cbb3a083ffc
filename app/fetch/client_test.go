package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestClient_Document_SendsBrowserIdentity(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte(`<html><body><h1>hello</h1></body></html>`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), "Mozilla/5.0 (test)")
	doc, err := client.Document(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}

	if gotUA != "Mozilla/5.0 (test)" {
		t.Errorf("unexpected user agent %q", gotUA)
	}
	if gotLang == "" {
		t.Error("expected Accept-Language header to be set")
	}
	if doc.Find("h1").Text() != "hello" {
		t.Errorf("unexpected document content")
	}
}

func TestClient_Document_Non2xxIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.Client(), "test")
	_, err := client.Document(context.Background(), server.URL, 5*time.Second)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if terr.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", terr.Status)
	}
}

func TestClient_PostFormJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		if r.PostForm.Get("subCategoryCode") != "CC102" {
			t.Errorf("missing form field, got %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), "test")
	var out struct {
		Success bool `json:"success"`
	}
	form := url.Values{"subCategoryCode": {"CC102"}}
	if err := client.PostFormJSON(context.Background(), server.URL, form, &out, 5*time.Second); err != nil {
		t.Fatalf("PostFormJSON failed: %v", err)
	}
	if !out.Success {
		t.Error("expected decoded success=true")
	}
}

func TestClient_Bytes_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.Client(), "test")
	_, err := client.Bytes(context.Background(), server.URL, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}
