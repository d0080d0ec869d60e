package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

const (
	defaultReadSize = 4096

	// Bounds the wait for response headers only. Stream length is left to the
	// caller's context.
	defaultHeaderTimeout = 30 * time.Second
)

// Result describes a finished turn. Failures never surface as errors; Err only
// records why the fallback message was used.
type Result struct {
	Content   string
	Fallback  bool
	Truncated bool
	Err       error
}

// Client consumes the streaming chat endpoint
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	readSize   int
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithReadSize sets the body read buffer size
func WithReadSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.readSize = n
		}
	}
}

func NewClient(endpoint, token string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: newStreamingHTTPClient(defaultHeaderTimeout),
		logger:     slog.Default(),
		readSize:   defaultReadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newStreamingHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// Stream posts history and delivers events to onEvent in stream order.
// Cancelling ctx ends the stream like a closed connection.
func (c *Client) Stream(ctx context.Context, history []models.ChatMessage, onEvent func(Event)) Result {
	asm := NewAssembler()
	emit := func(events []Event) {
		if onEvent == nil {
			return
		}
		for _, ev := range events {
			onEvent(ev)
		}
	}

	body, err := c.open(ctx, history)
	if err != nil {
		c.logger.WarnContext(ctx, "Chat stream request failed", "error", err)
		emit(asm.Finish(err))
		return Result{Fallback: true, Err: err}
	}
	defer body.Close()

	streamErr := readLoop(body, c.readSize, func(chunk []byte) {
		emit(asm.Consume(chunk))
	})

	finishEvents := asm.Finish(streamErr)
	emit(finishEvents)

	if asm.Truncated() {
		c.logger.WarnContext(ctx, "Chat stream ended inside a data frame", "content_length", len(asm.Content()))
	}
	if streamErr != nil {
		c.logger.WarnContext(ctx, "Chat stream interrupted", "error", streamErr, "content_length", len(asm.Content()))
	}

	res := Result{Content: asm.Content(), Truncated: asm.Truncated()}
	if len(finishEvents) > 0 {
		res.Fallback = true
		res.Err = finishEvents[0].Err
	}
	return res
}

func (c *Client) open(ctx context.Context, history []models.ChatMessage) (io.ReadCloser, error) {
	payload, err := json.Marshal(models.ChatRequest{Messages: history})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}

	return resp.Body, nil
}

// ErrNoBody is returned for a successful response without a body
var ErrNoBody = errors.New("chat response has no body")

// StatusError is a non-2xx answer from the chat endpoint
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat endpoint returned status %d: %s", e.StatusCode, e.Message)
}

func readErrorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return string(data)
}

func readLoop(r io.Reader, size int, fn func([]byte)) error {
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
