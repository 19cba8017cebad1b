package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"time"

	"zg-client/pkg/response"

	"github.com/google/uuid"
)

const maxBodySize = 10 << 20

// Credentials supplies the bearer token attached to authenticated calls.
type Credentials interface {
	Get() (string, bool)
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	creds      Credentials
	debug      bool

	hookMu         sync.RWMutex
	onUnauthorized func(token string)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

func New(baseURL string, timeout time.Duration, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		creds:      creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized registers fn to run whenever an authenticated call gets a
// 401. fn receives the token the rejected request carried. It replaces any
// previously registered hook.
func (c *Client) OnUnauthorized(fn func(token string)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onUnauthorized = fn
}

// PostPublic sends body without a bearer token and decodes the raw reply.
func (c *Client) PostPublic(ctx context.Context, path string, body, out interface{}) error {
	payload, err := encode(body)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, path: path, body: payload, contentType: "application/json"}, out)
}

// GetRaw is an authenticated GET for endpoints that return a bare entity
// instead of the status envelope.
func (c *Client) GetRaw(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, auth: true}, out)
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, auth: true, envelope: true}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := encode(body)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, path: path, body: payload, contentType: "application/json", auth: true, envelope: true}, out)
}

func (c *Client) Delete(ctx context.Context, path string, body, out interface{}) error {
	payload, err := encode(body)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: path, body: payload, contentType: "application/json", auth: true, envelope: true}, out)
}

type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file *FilePart, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.FileName))
		h.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.do(ctx, request{method: http.MethodPost, path: path, body: buf.Bytes(), contentType: w.FormDataContentType(), auth: true, envelope: true}, out)
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	auth        bool
	envelope    bool
}

func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	var token string
	if req.auth {
		t, ok := c.creds.Get()
		if !ok {
			return ErrNoCredential
		}
		token = t
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classify(ctx, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return classify(ctx, err)
	}

	if c.debug {
		log.Printf("[Client] %s %s -> %d (%v) id=%s", req.method, req.path, resp.StatusCode, time.Since(start), requestID)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: serverMessage(data)}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			apiErr.Kind = ErrUnauthorized
			if req.auth {
				c.unauthorized(token)
			}
		case http.StatusForbidden:
			apiErr.Kind = ErrForbidden
		default:
			apiErr.Kind = ErrRequestFailed
		}
		return apiErr
	}

	if req.envelope {
		var env response.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return &APIError{Status: resp.StatusCode, Message: "malformed response", Kind: ErrRequestFailed}
		}
		if !env.OK() {
			return &APIError{Status: resp.StatusCode, Message: env.Error, Kind: ErrRequestFailed}
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("cannot decode %s: %v", req.path, err), Kind: ErrRequestFailed}
		}
	}

	return nil
}

func (c *Client) unauthorized(token string) {
	c.hookMu.RLock()
	fn := c.onUnauthorized
	c.hookMu.RUnlock()

	if fn != nil {
		fn(token)
	}
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func serverMessage(data []byte) string {
	var env response.Envelope
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		return env.Message
	}
	return ""
}

func encode(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return payload, nil
}
