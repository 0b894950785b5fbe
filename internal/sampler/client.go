// Package sampler talks to the model-sampling and Mie optics services over
// HTTP. Request and response bodies are MessagePack so undefined values
// (NaN) survive the round trip.
package sampler

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const contentType = "application/x-msgpack"

// Config holds the service endpoints and cache settings.
type Config struct {
	Endpoint       string
	OpticsEndpoint string
	Timeout        time.Duration
	CacheSize      int
	CacheTTL       time.Duration
}

// Client implements cpl.Sampler and cpl.OpticsCalculator.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  *expirable.LRU[string, types.Field]
	logger *zap.SugaredLogger
}

var (
	_ cpl.Sampler          = (*Client)(nil)
	_ cpl.OpticsCalculator = (*Client)(nil)
)

// NewClient returns a client for the configured services. A zero CacheSize
// disables caching of sampled variables.
func NewClient(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: sampler endpoint is required", types.ErrInvalidInput)
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("%w: bad sampler endpoint %q: %v", types.ErrInvalidInput, cfg.Endpoint, err)
	}
	if cfg.OpticsEndpoint == "" {
		cfg.OpticsEndpoint = cfg.Endpoint
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, types.Field](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c, nil
}

type variablesResponse struct {
	Variables []string `json:"variables"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Variables lists the variables of a collection.
func (c *Client) Variables(ctx context.Context, collection string) ([]string, error) {
	u := c.url(c.cfg.Endpoint, "collections", url.PathEscape(collection), "variables")

	var resp variablesResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Variables, nil
}

// Sample samples one variable along the track.
func (c *Client) Sample(ctx context.Context, req cpl.SampleRequest) (types.Field, error) {
	key := cacheKey(req)
	if c.cache != nil {
		if f, ok := c.cache.Get(key); ok {
			c.debugf("sampler cache hit for %s/%s", req.Collection, req.Variable)
			return f, nil
		}
	}

	var f types.Field
	if err := c.do(ctx, http.MethodPost, c.url(c.cfg.Endpoint, "sample"), req, &f); err != nil {
		return types.Field{}, err
	}
	if _, err := types.NewField(f.Name, f.Shape, f.Data); err != nil {
		return types.Field{}, fmt.Errorf("sampler returned a malformed array for %s: %w", req.Variable, err)
	}

	if c.cache != nil {
		c.cache.Add(key, f)
	}
	return f, nil
}

// Extinction runs the Mie calculation on the optics service.
func (c *Client) Extinction(ctx context.Context, req cpl.OpticsRequest) (cpl.OpticsResult, error) {
	var res cpl.OpticsResult
	if err := c.do(ctx, http.MethodPost, c.url(c.cfg.OpticsEndpoint, "extinction"), req, &res); err != nil {
		return cpl.OpticsResult{}, err
	}
	return res, nil
}

func (c *Client) url(base string, elem ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(elem, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(body); err != nil {
			return fmt.Errorf("encoding request for %s: %w", u, err)
		}
		rdr = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", u, err)
	}
	req.Header.Set("Accept", contentType)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request to %s failed: %v", types.ErrResource, u, err)
	}
	defer resp.Body.Close()
	c.debugf("%s %s -> %d in %v", method, u, resp.StatusCode, time.Since(start))

	dec := msgpack.NewDecoder(resp.Body)
	dec.SetCustomStructTag("json")

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if derr := dec.Decode(&e); derr == nil && e.Error != "" {
			return fmt.Errorf("%w: %s returned %d: %s", types.ErrResource, u, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%w: %s returned %d", types.ErrResource, u, resp.StatusCode)
	}

	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", types.ErrResource, u, err)
	}
	return nil
}

func (c *Client) debugf(template string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(template, args...)
	}
}

// cacheKey identifies a request by collection, variable, levels and a hash
// of the track it samples.
func cacheKey(req cpl.SampleRequest) string {
	h := fnv.New64a()
	var b [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(b[:], v)
		h.Write(b[:])
	}
	for _, v := range req.Lon {
		put(math.Float64bits(v))
	}
	for _, v := range req.Lat {
		put(math.Float64bits(v))
	}
	for _, t := range req.Time {
		put(uint64(t.Unix()))
	}
	return fmt.Sprintf("%s|%s|%s|%d|%x", req.Collection, req.Variable, req.Levels, len(req.Lon), h.Sum64())
}
