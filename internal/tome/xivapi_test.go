package tome

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestXIVAPIResolve(t *testing.T) {
	var gotPath, gotColumns string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotColumns = r.URL.Query().Get("columns")
		if r.URL.Path == "/Action/185" {
			_, _ = w.Write([]byte(`{"ID":185,"Name":"Adloquium","Icon":"/i/000000/000804.png","Recast100ms":25}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	x, err := NewXIVAPI(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}

	a, err := x.Resolve(context.Background(), "B9")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotPath != "/Action/185" {
		t.Errorf("path = %q, want /Action/185", gotPath)
	}
	if gotColumns != "ID,Name,Icon,Recast100ms" {
		t.Errorf("columns = %q", gotColumns)
	}

	want := Action{
		ID:     "B9",
		Name:   "Adloquium",
		Icon:   server.URL + "/i/000000/000804.png",
		Recast: 2500 * time.Millisecond,
	}
	if a != want {
		t.Errorf("Resolve = %+v, want %+v", a, want)
	}
}

func TestXIVAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Action/1":
			http.NotFound(w, r)
		case "/Action/2":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{broken`))
		}
	}))
	defer server.Close()

	x, err := NewXIVAPI(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		unknown bool
	}{
		{"not hex", "zz", true},
		{"not found", "1", true},
		{"bad status", "2", false},
		{"bad body", "3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := x.Resolve(context.Background(), tt.id)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrUnknownAction); got != tt.unknown {
				t.Errorf("errors.Is(ErrUnknownAction) = %v, want %v (%v)", got, tt.unknown, err)
			}
		})
	}
}

func TestNewXIVAPIRequiresURL(t *testing.T) {
	if _, err := NewXIVAPI("  "); err == nil {
		t.Error("expected error for empty base url")
	}
}
