package responseformat

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func TestWriteResponse(t *testing.T) {
	f := NewFormatter()
	data := payload{Name: "ext", Values: []float64{1, math.NaN()}}

	tests := []struct {
		name        string
		url         string
		contentType string
	}{
		{"default json", "/x", "application/json"},
		{"explicit json", "/x?format=json", "application/json"},
		{"msgpack", "/x?format=msgpack", "application/x-msgpack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()

			body := any(data)
			if tt.contentType == "application/json" {
				body = payload{Name: data.Name, Values: data.Values[:1]}
			}
			if err := f.WriteResponse(rec, req, body, map[string]string{"X-Session": "abc"}); err != nil {
				t.Fatalf("WriteResponse: %v", err)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" || rec.Header().Get("X-Session") != "abc" {
				t.Errorf("headers = %v", rec.Header())
			}
		})
	}
}

func TestMsgPackKeepsNaN(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?format=msgpack", nil)
	rec := httptest.NewRecorder()

	if err := NewFormatter().WriteResponse(rec, req, payload{Name: "ext", Values: []float64{1, math.NaN()}}, nil); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	var got payload
	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "ext" || len(got.Values) != 2 || !math.IsNaN(got.Values[1]) {
		t.Errorf("decoded %+v", got)
	}
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()

	if err := NewFormatter().WriteError(rec, req, http.StatusNotFound, "no such field"); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] != "no such field" {
		t.Errorf("body = %v, %v", body, err)
	}
}

func TestNullableRows(t *testing.T) {
	rows := NullableRows([][]float64{{1, math.NaN()}, {math.Inf(1), 2}})

	if rows[0][0] == nil || *rows[0][0] != 1 || rows[1][1] == nil || *rows[1][1] != 2 {
		t.Errorf("finite cells lost: %v", rows)
	}
	if rows[0][1] != nil || rows[1][0] != nil {
		t.Errorf("non-finite cells should be nil")
	}

	b, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "[[1,null],[null,2]]" {
		t.Errorf("json = %s", b)
	}
}
