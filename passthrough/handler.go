package passthrough

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/modelrelay/modelrelay"
)

// Credential is a resolved upstream credential. Source distinguishes stored
// static keys from OAuth bearer tokens; MarkExhausted only applies to keys.
type Credential struct {
	ID     string
	Value  string
	Source string // "key" or "oauth"
}

// CredentialResolver supplies and retires provider credentials. ResolveKey
// returning (nil, nil) means no credential exists for the provider, which
// callers must treat as provider-unconfigured.
type CredentialResolver interface {
	ResolveKey(provider string) (*Credential, error)
	MarkExhausted(provider, keyID string)
}

// Handler forwards payloads to one provider endpoint. Instances are created
// lazily by the registry and are safe for concurrent use: all fields are
// immutable after construction.
type Handler struct {
	def    *Definition
	creds  CredentialResolver
	client *Client
	logger *slog.Logger
}

// NewHandler creates a passthrough handler for one provider definition.
func NewHandler(def *Definition, creds CredentialResolver, client *Client, logger *slog.Logger) *Handler {
	if client == nil {
		client = NewClient(ClientConfig{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{def: def, creds: creds, client: client, logger: logger}
}

// Provider returns the upstream provider name this handler serves.
func (h *Handler) Provider() string {
	return h.def.Provider
}

// Do sends a unary request and returns the upstream response body. Upstream
// failures relay the status code and body; quota signals additionally retire
// the credential that hit them.
func (h *Handler) Do(ctx context.Context, payload []byte) ([]byte, error) {
	body, err := h.preparePayload(payload, false)
	if err != nil {
		return nil, err
	}

	req, cred, err := h.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, modelrelay.NewNetworkError(h.def.Provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, modelrelay.NewNetworkError(h.def.Provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		h.handleFailureStatus(resp.StatusCode, cred)
		return nil, modelrelay.NewHTTPError(h.def.Provider, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// Stream sends a streaming request and returns the raw SSE event sequence.
// Closing the stream aborts the upstream request.
func (h *Handler) Stream(ctx context.Context, payload []byte) (*SSEStream, error) {
	body, err := h.preparePayload(payload, true)
	if err != nil {
		return nil, err
	}

	req, cred, err := h.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := h.client.DoStream(req)
	if err != nil {
		return nil, modelrelay.NewNetworkError(h.def.Provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		h.handleFailureStatus(resp.StatusCode, cred)
		return nil, modelrelay.NewHTTPError(h.def.Provider, resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	return &SSEStream{resp: resp, scanner: scanner}, nil
}

// CanonicalStream opens a streaming request and translates each upstream SSE
// payload through the given translator, yielding canonical events in receipt
// order.
func (h *Handler) CanonicalStream(ctx context.Context, payload []byte, translator modelrelay.StreamTranslator) (modelrelay.StreamReader, error) {
	stream, err := h.Stream(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &translatedStream{src: stream, translator: translator}, nil
}

// ExtractUsage pulls token counts out of a raw upstream payload using the
// catalog's usage format tag. Unknown or untagged formats yield zero usage.
func (h *Handler) ExtractUsage(raw []byte) modelrelay.Usage {
	if h.def.Endpoint.Usage == nil {
		return modelrelay.Usage{}
	}
	var usage modelrelay.Usage
	switch h.def.Endpoint.Usage.Format {
	case "openai":
		usage.PromptTokens = int(gjson.GetBytes(raw, "usage.prompt_tokens").Int())
		usage.CompletionTokens = int(gjson.GetBytes(raw, "usage.completion_tokens").Int())
	case "anthropic", "responses":
		usage.InputTokens = int(gjson.GetBytes(raw, "usage.input_tokens").Int())
		usage.OutputTokens = int(gjson.GetBytes(raw, "usage.output_tokens").Int())
	}
	return usage.Normalize()
}

// preparePayload applies the catalog's payload defaults to fields the client
// left absent, and forces the stream option when the endpoint requires it.
func (h *Handler) preparePayload(payload []byte, stream bool) ([]byte, error) {
	out := payload
	var err error
	for key, value := range h.def.Endpoint.PayloadDefaults {
		if gjson.GetBytes(out, key).Exists() {
			continue
		}
		out, err = sjson.SetBytes(out, key, value)
		if err != nil {
			return nil, modelrelay.NewValidationError(fmt.Sprintf("apply payload default '%s': %v", key, err))
		}
	}
	if stream && h.def.Endpoint.ForceStreamOption {
		out, err = sjson.SetBytes(out, "stream", true)
		if err != nil {
			return nil, modelrelay.NewValidationError("apply stream option: " + err.Error())
		}
	}
	return out, nil
}

func (h *Handler) newRequest(ctx context.Context, body []byte) (*http.Request, *Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.def.Endpoint.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, modelrelay.NewErrorWithCause(modelrelay.ErrorTypeInternal, "build upstream request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range h.def.Endpoint.StaticHeaders {
		req.Header.Set(name, value)
	}

	cred, err := h.authorize(req)
	if err != nil {
		return nil, nil, err
	}
	return req, cred, nil
}

// authorize sets the auth header per the catalog template. In x402 mode the
// payment gateway authorizes the request and no header is set here.
func (h *Handler) authorize(req *http.Request) (*Credential, error) {
	auth := h.def.Endpoint.Auth
	if h.def.X402Enabled || auth == nil {
		return nil, nil
	}

	var cred *Credential
	if h.creds != nil {
		resolved, err := h.creds.ResolveKey(h.def.Provider)
		if err != nil {
			return nil, err
		}
		cred = resolved
	}
	if cred == nil && auth.EnvVar != "" {
		if value := os.Getenv(auth.EnvVar); value != "" {
			cred = &Credential{Value: value, Source: "env"}
		}
	}
	if cred == nil {
		return nil, modelrelay.NewCredentialError(h.def.Provider)
	}

	header := auth.Header
	if header == "" {
		header = "Authorization"
	}
	value := cred.Value
	switch {
	case auth.Template != "":
		value = fmt.Sprintf(auth.Template, cred.Value)
	case auth.Scheme != "":
		value = auth.Scheme + " " + cred.Value
	}
	req.Header.Set(header, value)
	return cred, nil
}

// handleFailureStatus retires the credential on quota signals. 402 covers
// payment-gateway balance exhaustion, which behaves like a rate limit.
func (h *Handler) handleFailureStatus(status int, cred *Credential) {
	if status != http.StatusTooManyRequests && status != http.StatusPaymentRequired {
		return
	}
	if h.creds == nil || cred == nil || cred.Source != "key" {
		return
	}
	h.logger.Warn("upstream quota signal, retiring key",
		"provider", h.def.Provider, "status", status, "key_id", cred.ID)
	h.creds.MarkExhausted(h.def.Provider, cred.ID)
}

// SSEStream is a forward-only sequence of raw SSE data payloads. Next skips
// blank lines, comments and the OpenAI-style [DONE] sentinel, returning
// io.EOF when the upstream closes the stream.
type SSEStream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	done    bool
}

// Next returns the next data payload in receipt order.
func (s *SSEStream) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}
		return []byte(data), nil
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close aborts the upstream request.
func (s *SSEStream) Close() error {
	s.done = true
	return s.resp.Body.Close()
}

// translatedStream adapts an SSEStream into canonical events through a
// format translator. One upstream payload can expand into several canonical
// events; they are buffered and yielded one at a time.
//
// The terminal event is held back until the upstream closes: some upstreams
// send trailing payloads after the finish signal (OpenAI's
// stream_options.include_usage usage chunk arrives after the finish_reason
// chunk), and those must reach the consumer before the sequence terminates.
type translatedStream struct {
	src        *SSEStream
	translator modelrelay.StreamTranslator
	pending    []modelrelay.CanonicalStreamEvent
	terminal   *modelrelay.CanonicalStreamEvent
	done       bool
}

func (t *translatedStream) Next() (*modelrelay.CanonicalStreamEvent, error) {
	if t.done {
		return nil, io.EOF
	}
	for len(t.pending) == 0 {
		raw, err := t.src.Next()
		if err != nil {
			if err == io.EOF && t.terminal != nil {
				t.done = true
				return t.terminal, nil
			}
			return nil, err
		}
		events, err := t.translator.StreamEventToCanonical(raw)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if ev.Type.Terminal() {
				held := ev
				t.terminal = &held
				continue
			}
			t.pending = append(t.pending, ev)
		}
	}
	ev := t.pending[0]
	t.pending = t.pending[1:]
	return &ev, nil
}

// Close aborts the upstream request. No further events are yielded, including
// a held terminal event.
func (t *translatedStream) Close() error {
	t.done = true
	return t.src.Close()
}
