// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package singular

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

const modelResponse = `[
  {
    "id": "comp-1",
    "name": "Lower Third",
    "model": [
      {"id": "f-title", "title": "Title", "type": "text"},
      {"id": "f-min", "title": "Minutes", "type": "number"}
    ],
    "subcompositions": [
      {
        "id": "sub-1",
        "name": "Clock",
        "model": [
          {"id": "f-sec", "title": "Seconds", "type": "number"}
        ]
      }
    ]
  }
]`

func TestFetchModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/controlapps/tok123/model" {
			t.Errorf("path: expected /controlapps/tok123/model, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method: expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	comps, err := client.FetchModel(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("FetchModel: %v", err)
	}

	if len(comps) != 1 {
		t.Fatalf("expected 1 top-level composition, got %d", len(comps))
	}
	if comps[0].ID != "comp-1" || comps[0].Name != "Lower Third" {
		t.Errorf("unexpected composition: %+v", comps[0])
	}
	if len(comps[0].Subcompositions) != 1 || comps[0].Subcompositions[0].ID != "sub-1" {
		t.Errorf("unexpected subcompositions: %+v", comps[0].Subcompositions)
	}
}

func TestFetchModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "boom", ErrUnavailable},
		{"not found", http.StatusNotFound, "no such app", ErrUnavailable},
		{"malformed body", http.StatusOK, "<html>not json</html>", ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			_, err := client.FetchModel(context.Background(), "tok")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFetchModelConnectionRefused(t *testing.T) {
	// Closed server, port belongs to no one.
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, time.Second)
	_, err := client.FetchModel(context.Background(), "tok")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("connection refusal should classify as ErrUnavailable, got %v", err)
	}
}

func TestPatch(t *testing.T) {
	var gotBody []PatchGroup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method: expected PATCH, got %s", r.Method)
		}
		if r.URL.Path != "/controlapps/tok/control" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("body did not decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	groups := []PatchGroup{
		{SubCompositionID: "comp-1", Payload: map[string]any{"f-min": 2, "f-sec": 5.0}},
		{SubCompositionID: "comp-2", State: "In"},
	}
	if err := client.Patch(context.Background(), "tok", groups); err != nil {
		t.Fatalf("Patch: %v", err)
	}

	if len(gotBody) != 2 {
		t.Fatalf("expected 2 groups on the wire, got %d", len(gotBody))
	}
	if gotBody[0].SubCompositionID != "comp-1" {
		t.Errorf("group 0: %+v", gotBody[0])
	}
	if gotBody[1].State != "In" {
		t.Errorf("group 1 state: %+v", gotBody[1])
	}
}

func TestPatchNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unknown field"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	err := client.Patch(context.Background(), "tok", []PatchGroup{{SubCompositionID: "x"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
