package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/pkg/api"
)

// defaultRetryAfter используется, если сервер ответил 429 без Retry-After
const defaultRetryAfter = time.Second

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	connectionID string
	mu           sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetToken задает bearer токен для последующих запросов
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// SetConnectionID задает идентификатор websocket соединения клиента.
// Сервер не присылает в это соединение эхо изменений, сделанных через REST.
func (c *Client) SetConnectionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectionID = id
}

// BaseURL возвращает адрес сервера
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessage отправляет новое сообщение в беседу.
// idempotencyKey позволяет безопасно повторять запрос: сервер вернет уже созданное сообщение.
func (c *Client) SendMessage(ctx context.Context, conversationID, idempotencyKey, body string) (*api.Message, error) {
	var resp api.Message
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", url.PathEscape(conversationID))
	req := api.SendMessageRequest{IdempotencyKey: idempotencyKey, Body: body}
	if err := c.doRequest(ctx, http.MethodPost, path, idempotencyKey, req, &resp); err != nil {
		return nil, fmt.Errorf("send message request failed: %w", err)
	}
	return &resp, nil
}

// EditMessage изменяет текст сообщения
func (c *Client) EditMessage(ctx context.Context, messageID, idempotencyKey, body string) (*api.Message, error) {
	var resp api.Message
	path := "/api/v1/messages/" + url.PathEscape(messageID)
	if err := c.doRequest(ctx, http.MethodPatch, path, idempotencyKey, api.EditMessageRequest{Body: body}, &resp); err != nil {
		return nil, fmt.Errorf("edit message request failed: %w", err)
	}
	return &resp, nil
}

// DeleteMessage удаляет сообщение
func (c *Client) DeleteMessage(ctx context.Context, messageID, idempotencyKey string) (*api.Message, error) {
	var resp api.Message
	path := "/api/v1/messages/" + url.PathEscape(messageID)
	if err := c.doRequest(ctx, http.MethodDelete, path, idempotencyKey, nil, &resp); err != nil {
		return nil, fmt.Errorf("delete message request failed: %w", err)
	}
	return &resp, nil
}

// AddReaction добавляет реакцию текущего пользователя
func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) (*api.Message, error) {
	var resp api.Message
	path := fmt.Sprintf("/api/v1/messages/%s/reactions", url.PathEscape(messageID))
	if err := c.doRequest(ctx, http.MethodPost, path, "", api.ReactionRequest{Emoji: emoji}, &resp); err != nil {
		return nil, fmt.Errorf("add reaction request failed: %w", err)
	}
	return &resp, nil
}

// RemoveReaction снимает реакцию текущего пользователя
func (c *Client) RemoveReaction(ctx context.Context, messageID, emoji string) (*api.Message, error) {
	var resp api.Message
	path := fmt.Sprintf("/api/v1/messages/%s/reactions/%s", url.PathEscape(messageID), url.PathEscape(emoji))
	if err := c.doRequest(ctx, http.MethodDelete, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("remove reaction request failed: %w", err)
	}
	return &resp, nil
}

// ListMessages получает сообщения беседы, измененные начиная с since.
// afterID продолжает страницу: возвращаются сообщения после курсора (since, afterID).
func (c *Client) ListMessages(ctx context.Context, conversationID string, since time.Time, afterID string, limit int) ([]api.Message, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	if afterID != "" {
		q.Set("after", afterID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", url.PathEscape(conversationID))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp api.MessagesResponse
	if err := c.doRequest(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages request failed: %w", err)
	}
	return resp.Messages, nil
}

// GetDocument получает серверную копию документа
func (c *Client) GetDocument(ctx context.Context, documentID string) (*crdt.Document, error) {
	doc := crdt.NewDocument(documentID)
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(documentID), "", nil, doc); err != nil {
		return nil, fmt.Errorf("get document request failed: %w", err)
	}
	return doc, nil
}

// PutDocument отправляет локальную копию документа и получает результат слияния с серверной
func (c *Client) PutDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error) {
	merged := crdt.NewDocument(doc.ID)
	if err := c.doRequest(ctx, http.MethodPut, "/api/v1/documents/"+url.PathEscape(doc.ID), "", doc, merged); err != nil {
		return nil, fmt.Errorf("put document request failed: %w", err)
	}
	return merged, nil
}

// Health проверяет состояние сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		// 503 тоже содержит тело со статусом
		var transient *TransientError
		if !errors.As(err, &transient) || transient.StatusCode != http.StatusServiceUnavailable || resp.Status == "" {
			return nil, fmt.Errorf("health request failed: %w", err)
		}
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и классифицирует ошибки:
// сеть и 5xx - TransientError, 429 - RateLimitedError, прочие 4xx - PermanentError.
func (c *Client) doRequest(ctx context.Context, method, path, idempotencyKey string, body, result any) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(api.HeaderIdempotencyKey, idempotencyKey)
	}

	c.mu.RLock()
	token, connID := c.token, c.connectionID
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if connID != "" {
		req.Header.Set(api.HeaderConnectionID, connID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Отмена контекста вызывающим не является сбоем сети
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusServiceUnavailable && result != nil {
			_ = json.Unmarshal(respBody, result)
		}
		return statusError(resp, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func statusError(resp *http.Response, body []byte) error {
	message := string(bytes.TrimSpace(body))
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
		if errResp.Message != "" {
			message += ": " + errResp.Message
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get(api.HeaderRetryAfter))}
	case resp.StatusCode >= 500:
		return &TransientError{StatusCode: resp.StatusCode, Err: errors.New(message)}
	default:
		return &PermanentError{StatusCode: resp.StatusCode, Message: message}
	}
}

// parseRetryAfter разбирает Retry-After в секундах или в формате HTTP даты
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return defaultRetryAfter
}
