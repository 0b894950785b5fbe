package responseformat

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format returns the encoding requested by the format query parameter.
// JSON is the default; MessagePack is used when format=msgpack is specified.
func Format(req *http.Request) string {
	if req.URL.Query().Get("format") == FormatMsgPack {
		return FormatMsgPack
	}
	return FormatJSON
}

// WriteResponse writes the response in the appropriate format based on the query parameter
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	return f.WriteStatus(w, req, http.StatusOK, data, headers)
}

// WriteStatus is WriteResponse with an explicit status code
func (f *Formatter) WriteStatus(w http.ResponseWriter, req *http.Request, status int, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if Format(req) == FormatMsgPack {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

// WriteError writes {"error": msg} with the given status
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, msg string) error {
	return f.WriteStatus(w, req, status, map[string]string{"error": msg}, nil)
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/x-msgpack")
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}

// NullableRows replaces NaN and infinite cells with nil so a grid can be
// JSON encoded. MessagePack carries NaN natively and does not need this.
func NullableRows(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for i, row := range rows {
		out[i] = make([]*float64, len(row))
		for j := range row {
			if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
				continue
			}
			out[i][j] = &row[j]
		}
	}
	return out
}
