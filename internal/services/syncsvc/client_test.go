package syncsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storygraph/internal/services"
	"storygraph/internal/services/httpjson"
)

func TestOffsetResponseShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		fps   float64
		want  int64
		field string
	}{
		{name: "frames", body: `{"offset_frames":120}`, fps: 25, want: 120, field: "offset_frames"},
		{name: "hybrid", body: `{"hybrid_offset_frames":-42}`, fps: 25, want: -42, field: "hybrid_offset_frames"},
		{name: "float frames round", body: `{"offset_frames":12.5}`, fps: 25, want: 13, field: "offset_frames"},
		{name: "seconds", body: `{"offset_seconds":2.0}`, fps: 30, want: 60, field: "offset_seconds"},
		{name: "frames preferred", body: `{"offset_frames":5,"offset_seconds":9}`, fps: 25, want: 5, field: "offset_frames"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(httpjson.NewClient(httpjson.Config{Service: "sync", BaseURL: server.URL}))
			got, err := client.Offset(context.Background(), Request{Master: "m.wav", Sample: "a.mov"}, tt.fps)
			if err != nil {
				t.Fatalf("Offset: %v", err)
			}
			if got.Frames != tt.want || got.Field != tt.field {
				t.Fatalf("got %+v, want %d from %s", got, tt.want, tt.field)
			}
		})
	}
}

func TestOffsetSendsRequestFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		for _, key := range []string{"master", "sample", "bucket", "start_offset", "duration_limit"} {
			if _, ok := body[key]; !ok {
				t.Errorf("request missing %s", key)
			}
		}
		if body["duration_limit"] != float64(10) {
			t.Errorf("unexpected duration_limit %v", body["duration_limit"])
		}
		_, _ = w.Write([]byte(`{"offset_frames":0}`))
	}))
	defer server.Close()

	client := New(httpjson.NewClient(httpjson.Config{Service: "sync", BaseURL: server.URL}))
	_, err := client.Offset(context.Background(), Request{
		Master: "m.wav", Sample: "a.mov", Bucket: "story-graph-proxies", DurationLimit: 10,
	}, 25)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
}

func TestOffsetRequiresValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(httpjson.NewClient(httpjson.Config{Service: "sync", BaseURL: server.URL}))
	_, err := client.Offset(context.Background(), Request{Master: "m.wav", Sample: "a.mov"}, 25)
	if !errors.Is(err, services.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
}
