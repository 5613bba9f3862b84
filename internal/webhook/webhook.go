// Package webhook performs the HTTP call for a resolved template and folds
// every outcome into a Result.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YangQing-Lin/hooky-cli/internal/params"
)

// DefaultMethod is used when a config carries no method.
const DefaultMethod = "POST"

// Config is the part of a template the dispatcher needs.
type Config struct {
	URL    string         `json:"url" validate:"required,url"`
	Method string         `json:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Params []params.Param `json:"params"`
}

// Result is the normalized outcome of one dispatch. Status is absent on
// transport failures; Error is absent when a response arrived.
type Result struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Request is what the transport sends. Body is nil for query methods.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is what the transport reports back.
type Response struct {
	OK     bool
	Status int
}

// Transport is the injected HTTP capability. It returns an error only for
// transport-level failures, never for non-2xx statuses.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Observer is notified after every dispatch.
type Observer func(cfg Config, result Result, elapsed time.Duration)

// Dispatcher sends webhook requests through a Transport.
type Dispatcher struct {
	transport Transport
	observers []Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers a callback run after each dispatch.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observers = append(d.observers, o)
	}
}

// NewDispatcher creates a dispatcher over transport.
func NewDispatcher(transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{transport: transport}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch builds and sends the request for cfg with vars as the template
// context. It never panics and never returns an error: failures end up in
// the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg Config, vars map[string]any) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = Result{OK: false, Error: fmt.Sprint(r)}
		}
		for _, o := range d.observers {
			o(cfg, result, time.Since(start))
		}
	}()

	req, err := BuildRequest(cfg, vars)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}

	resp, err := d.transport.Do(ctx, req)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}
	return Result{OK: resp.OK, Status: resp.Status}
}

// BuildRequest resolves the final URL and, for body methods, the JSON body.
func BuildRequest(cfg Config, vars map[string]any) (Request, error) {
	method := cfg.Method
	if method == "" {
		method = DefaultMethod
	}

	req := Request{
		Method:  method,
		URL:     params.BuildURL(cfg.URL, cfg.Params, vars, method),
		Headers: map[string]string{"Content-Type": "application/json"},
	}

	if !params.IsQueryMethod(method) {
		body, err := encodeBody(params.BuildBody(cfg.Params, vars))
		if err != nil {
			return Request{}, err
		}
		req.Body = body
	}
	return req, nil
}

// encodeBody serializes without HTML escaping and without a trailing newline.
func encodeBody(body map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
