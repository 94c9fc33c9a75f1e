package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const HeaderRequestID = "X-Request-ID"

type Encoding int

const (
	// EncodingAuto picks multipart when the payload carries files, JSON otherwise.
	EncodingAuto Encoding = iota
	EncodingJSON
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingMultipart:
		return "multipart"
	default:
		return "auto"
	}
}

// TokenSource yields the bearer credential to attach, or "" for none.
type TokenSource interface {
	Token() string
}

type Request struct {
	Method   string
	Path     string
	Body     interface{}
	Encoding Encoding
}

type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(path string, v interface{}) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return &DecodeError{Path: path, Err: fmt.Errorf("empty body")}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger

	mu             sync.RWMutex
	onUnauthorized func()
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetUnauthorizedHandler registers fn to run whenever the server answers 401.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// resolve joins path onto the base address. Paths are always relative to it,
// a leading slash does not escape the /api/v1 prefix.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse("./" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) encode(req Request) (io.Reader, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}

	payload, isPayload := req.Body.(*Payload)
	enc := req.Encoding
	if enc == EncodingAuto {
		enc = EncodingJSON
		if isPayload && payload.HasFiles() {
			enc = EncodingMultipart
		}
	}

	switch enc {
	case EncodingMultipart:
		if !isPayload {
			return nil, "", fmt.Errorf("multipart encoding requires a *Payload body, got %T", req.Body)
		}
		return payload.writeMultipart()
	default:
		var body interface{} = req.Body
		if isPayload {
			if payload.HasFiles() {
				return nil, "", fmt.Errorf("json encoding cannot carry file parts")
			}
			body = payload.Fields()
		}
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding json body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// Send issues req against the base address. Non-2xx statuses come back as
// *HTTPError, transport failures as *NetworkError.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := c.encode(req)
	if err != nil {
		return nil, err
	}

	target, err := c.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)

	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn().
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("path", req.Path).
			Err(err).
			Msg("request failed")
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("reading body: %w", err)}
	}

	event := c.log.Debug()
	if resp.StatusCode >= 400 {
		event = c.log.Warn()
	}
	event.
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Str("encoding", req.Encoding.String()).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request settled")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.RLock()
			fn := c.onUnauthorized
			c.mu.RUnlock()
			if fn != nil {
				fn()
			}
		}
		return nil, &HTTPError{
			Method:  req.Method,
			Path:    req.Path,
			Status:  resp.StatusCode,
			Message: serverMessage(data),
		}
	}

	return &Response{Status: resp.StatusCode, Body: data, RequestID: requestID}, nil
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.Send(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	return resp.Decode(path, out)
}

// SendMultipart issues method with a forced multipart body and decodes the reply into out.
func (c *Client) SendMultipart(ctx context.Context, method, path string, payload *Payload, out interface{}) error {
	resp, err := c.Send(ctx, Request{Method: method, Path: path, Body: payload, Encoding: EncodingMultipart})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(path, out)
}

// Delete issues a DELETE. The reply body is ignored.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Send(ctx, Request{Method: http.MethodDelete, Path: path})
	return err
}
