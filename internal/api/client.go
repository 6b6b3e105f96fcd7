// Package api предоставляет клиент бэкенда магазина: единую точку всех HTTP-вызовов.
package api

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
	"go.uber.org/zap"
)

// TokenHeader задаёт имя заголовка, в котором передаётся токен сессии.
const TokenHeader = "token"

// SessionHook связывает клиент с хранилищем сессии: источник токена и обработчик истечения.
type SessionHook interface {
	Token() string
	HandleExpiry(ctx context.Context)
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.RWMutex
	session SessionHook
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет используемый http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// envelope описывает общую часть всех ответов бэкенда.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// NewClient создаёт клиент бэкенда по указанному базовому адресу.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BindSession подключает хранилище сессии.
func (c *Client) BindSession(s SessionHook) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) hook() SessionHook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Do выполняет вызов бэкенда и раскладывает конверт ответа в out.
// Для авторизованных вызовов добавляется заголовок token, а признак
// истёкшей сессии передаётся хранилищу сессии до возврата ошибки.
func (c *Client) Do(ctx context.Context, method, path string, authenticated bool, body, out any) error {
	if c == nil || c.baseURL == "" {
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("backend client not configured")}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindUnknown, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var hook SessionHook
	if authenticated {
		hook = c.hook()
		if hook != nil {
			req.Header.Set(TokenHeader, hook.Token())
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &Error{Kind: KindNetwork, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)

	apiErr := classify(resp.StatusCode, raw, authenticated)
	if apiErr != nil {
		if apiErr.Kind == KindAuthExpired && hook != nil {
			c.logger.Info("session expired", zap.String("path", path), zap.String("request_id", requestID))
			hook.HandleExpiry(ctx)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: KindUnknown, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	return nil
}

func classify(status int, raw []byte, authenticated bool) *Error {
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if authenticated && (status == http.StatusUnauthorized || (decodeErr == nil && env.Message == ExpiredMessage)) {
		return &Error{Kind: KindAuthExpired, Status: status, Message: env.Message}
	}

	if decodeErr != nil {
		if status < 200 || status >= 300 {
			return &Error{Kind: KindUnknown, Status: status, Err: fmt.Errorf("unexpected status: %d", status)}
		}
		return &Error{Kind: KindUnknown, Status: status, Err: fmt.Errorf("decode envelope: %w", decodeErr)}
	}

	if !env.Success {
		if env.Message == "" && (status < 200 || status >= 300) {
			return &Error{Kind: KindUnknown, Status: status, Err: fmt.Errorf("unexpected status: %d", status)}
		}
		return &Error{Kind: KindBusiness, Status: status, Message: env.Message}
	}

	if status < 200 || status >= 300 {
		return &Error{Kind: KindUnknown, Status: status, Err: fmt.Errorf("unexpected status: %d", status)}
	}

	return nil
}

// SubmitForm отправляет форму во внешний вебхук без учётных данных.
// Ответ не читается: отсутствие транспортной ошибки считается успехом.
func (c *Client) SubmitForm(ctx context.Context, webhookURL string, values url.Values) error {
	if webhookURL == "" {
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("form webhook not configured")}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("parse webhook url: %w", err)}
	}
	q := u.Query()
	for k, vs := range values {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &Error{Kind: KindUnknown, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: fmt.Errorf("submit form: %w", err)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return nil
}
