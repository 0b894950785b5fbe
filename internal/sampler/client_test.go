package sampler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/types"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type fakeService struct {
	samples atomic.Int32
}

func writeMsgPack(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	enc.Encode(v)
}

func (f *fakeService) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/collections/{collection}/variables", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["collection"] != "inst3_3d_aer_Nv" {
			writeMsgPack(w, http.StatusNotFound, errorResponse{Error: "no such collection"})
			return
		}
		writeMsgPack(w, http.StatusOK, variablesResponse{Variables: []string{"so4", "du001"}})
	}).Methods(http.MethodGet)

	r.HandleFunc("/sample", func(w http.ResponseWriter, req *http.Request) {
		f.samples.Add(1)
		dec := msgpack.NewDecoder(req.Body)
		dec.SetCustomStructTag("json")
		var sr cpl.SampleRequest
		if err := dec.Decode(&sr); err != nil {
			writeMsgPack(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		data := make([]float64, len(sr.Lon))
		for i := range data {
			data[i] = sr.Lat[i]
		}
		data[0] = math.NaN()
		writeMsgPack(w, http.StatusOK, types.Field{Name: sr.Variable, Shape: []int{len(sr.Lon)}, Data: data})
	}).Methods(http.MethodPost)

	r.HandleFunc("/extinction", func(w http.ResponseWriter, req *http.Request) {
		dec := msgpack.NewDecoder(req.Body)
		dec.SetCustomStructTag("json")
		var or cpl.OpticsRequest
		if err := dec.Decode(&or); err != nil {
			writeMsgPack(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeMsgPack(w, http.StatusOK, cpl.OpticsResult{Ext: or.H})
	}).Methods(http.MethodPost)
	return r
}

func sampleRequest() cpl.SampleRequest {
	t0 := time.Date(2013, 8, 19, 18, 0, 0, 0, time.UTC)
	return cpl.SampleRequest{
		Collection: "inst3_3d_aer_Nv",
		Variable:   "so4",
		Levels:     "70 40",
		Lon:        []float64{-95, -94.9, -94.8},
		Lat:        []float64{29, 29.1, 29.2},
		Time:       []time.Time{t0, t0.Add(time.Second), t0.Add(2 * time.Second)},
	}
}

func TestClientSample(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.router())
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, CacheSize: 8, CacheTTL: time.Minute}, nil)
	require.NoError(t, err)

	f, err := c.Sample(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, f.Shape)
	assert.True(t, math.IsNaN(f.Data[0]))
	assert.InDelta(t, 29.2, f.Data[2], 1e-12)

	_, err = c.Sample(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.EqualValues(t, 1, svc.samples.Load(), "second request should be served from cache")

	other := sampleRequest()
	other.Variable = "du001"
	_, err = c.Sample(context.Background(), other)
	require.NoError(t, err)
	assert.EqualValues(t, 2, svc.samples.Load())
}

func TestClientVariables(t *testing.T) {
	srv := httptest.NewServer((&fakeService{}).router())
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL + "/"}, nil)
	require.NoError(t, err)

	vars, err := c.Variables(context.Background(), "inst3_3d_aer_Nv")
	require.NoError(t, err)
	assert.Equal(t, []string{"so4", "du001"}, vars)

	_, err = c.Variables(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrResource))
	assert.Contains(t, err.Error(), "no such collection")
}

func TestClientExtinction(t *testing.T) {
	srv := httptest.NewServer((&fakeService{}).router())
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: "http://unused.invalid", OpticsEndpoint: srv.URL}, nil)
	require.NoError(t, err)

	h := types.Field{Name: "H", Shape: []int{1, 2}, Data: []float64{math.NaN(), 100}}
	res, err := c.Extinction(context.Background(), cpl.OpticsRequest{Channels: []float64{532}, H: h})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Ext.Shape)
	assert.True(t, math.IsNaN(res.Ext.Data[0]))
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{Endpoint: url}, nil)
	require.NoError(t, err)

	_, err = c.Sample(context.Background(), sampleRequest())
	assert.True(t, errors.Is(err, types.ErrResource), "got %v", err)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}
