package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/auditportal/auditportal/internal/config"
	"github.com/auditportal/auditportal/internal/http"
	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/version"
)

// retryLogger adapts the client logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client talks to the portal backend.
type Client struct {
	httpClient     *nethttp.Client
	transferClient *nethttp.Client
	config         *config.Config
	baseURL        string
	token          string
	logger         *logging.Logger
}

// NewClient creates a client for cfg.APIBaseURL. JSON calls go through a
// retrying transport (cfg.MaxRetries, zero by default); uploads use a
// separate streaming client without retries.
func NewClient(cfg *config.Config, token string, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("API base URL is empty: %w", config.ErrMissingAPIURL)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	transferClient, err := http.NewTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = &retryLogger{logger: logger}
	// Hand the final response back unchanged so status and body reach newError.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		httpClient:     retryClient.StandardClient(),
		transferClient: transferClient,
		config:         cfg,
		baseURL:        strings.TrimSuffix(cfg.APIBaseURL, "/"),
		token:          token,
		logger:         logger,
	}, nil
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Config returns the configuration used by this client.
func (c *Client) Config() *config.Config {
	return c.config
}

// TransferClient returns the streaming client, also used for downloads.
func (c *Client) TransferClient() *nethttp.Client {
	return c.transferClient
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

// doRequest sends a JSON request and returns the raw response.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, method, path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Msg("request")
	return resp, nil
}

// call sends a request and returns the body of a 2xx response. Any other
// status becomes an *Error.
func (c *Client) call(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(method, path, resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) callJSON(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := c.call(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Login signs in. When the account must change its password first, the
// response carries a change token and the error is ErrPasswordChangeRequired.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.callJSON(ctx, nethttp.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	if out.RequiresPasswordChange {
		if out.ChangeToken == "" {
			return nil, fmt.Errorf("%w: password change required without change token", ErrUnexpectedShape)
		}
		return &out, ErrPasswordChangeRequired
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: login response without token", ErrUnexpectedShape)
	}
	return &out, nil
}

// ChangePassword changes the password of the account the client's token
// belongs to. Either a session token or a change token is accepted.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	var out models.MessageResponse
	req := models.ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := c.callJSON(ctx, nethttp.MethodPost, "/api/auth/password/change", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListCategories returns the master category list.
func (c *Client) ListCategories(ctx context.Context) ([]models.CategoryRecord, error) {
	data, err := c.call(ctx, nethttp.MethodGet, "/api/categories", nil)
	if err != nil {
		return []models.CategoryRecord{}, err
	}
	return decodeList[models.CategoryRecord](data)
}

// ListFiles returns the files uploaded by username.
func (c *Client) ListFiles(ctx context.Context, username string) ([]models.FileRecord, error) {
	path := "/api/files?userId=" + url.QueryEscape(username)
	data, err := c.call(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return []models.FileRecord{}, err
	}
	return decodeList[models.FileRecord](data)
}

// FileURL resolves a blob path to a short-lived download URL.
func (c *Client) FileURL(ctx context.Context, blobPath string) (string, error) {
	var out models.FileURLResponse
	path := "/api/files/url?blobPath=" + url.QueryEscape(blobPath)
	if err := c.callJSON(ctx, nethttp.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty url for %s", ErrUnexpectedShape, blobPath)
	}
	return out.URL, nil
}

// UploadRequest describes one multipart upload. Exactly one of Categories
// or DocumentName should be set.
type UploadRequest struct {
	Filename     string
	Content      io.Reader
	Categories   []string
	DocumentName string
}

// UploadFile streams a file to /api/files/upload as multipart form data.
// The body is not buffered, so Content may report progress as it is read.
func (c *Client) UploadFile(ctx context.Context, up UploadRequest) (*models.UploadResponse, error) {
	if up.Content == nil {
		return nil, errors.New("upload has no content")
	}
	if len(up.Categories) == 0 && up.DocumentName == "" {
		return nil, errors.New("upload needs at least one category or a document name")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, up)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	const path = "/api/files/upload"
	req, err := c.newRequest(ctx, nethttp.MethodPost, path, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.transferClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("upload %s: %w", up.Filename, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(nethttp.MethodPost, path, resp.StatusCode, data)
	}

	// The acknowledgement is loosely typed; keep whatever decodes.
	var out models.UploadResponse
	_ = json.Unmarshal(data, &out)
	return &out, nil
}

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	for _, name := range up.Categories {
		if err := mw.WriteField("categories[]", name); err != nil {
			return err
		}
	}
	if up.DocumentName != "" {
		if err := mw.WriteField("documentName", up.DocumentName); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", up.Filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, up.Content)
	return err
}

// DashboardStats returns the dashboard counters and missing documents.
func (c *Client) DashboardStats(ctx context.Context) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.callJSON(ctx, nethttp.MethodGet, "/api/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	if out.MissingFiles == nil {
		out.MissingFiles = []models.MissingDocument{}
	}
	return &out, nil
}

// StartChat creates or resumes a conversation and returns its id.
func (c *Client) StartChat(ctx context.Context, req models.StartChatRequest) (string, error) {
	var out models.StartChatResponse
	if err := c.callJSON(ctx, nethttp.MethodPost, "/api/chat/start", req, &out); err != nil {
		return "", err
	}
	if out.ConversationID == "" {
		return "", fmt.Errorf("%w: no conversationId", ErrUnexpectedShape)
	}
	return out.ConversationID, nil
}

// ChatHistory returns the messages of a conversation. Both a bare array
// and {messages: [...]} are accepted.
func (c *Client) ChatHistory(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	data, err := c.call(ctx, nethttp.MethodGet, "/api/chat/history/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return nil, err
	}
	return decodeWrappedList[models.ChatMessage](data, "messages")
}

// SendChat posts a message to a conversation.
func (c *Client) SendChat(ctx context.Context, req models.SendChatRequest) error {
	return c.callJSON(ctx, nethttp.MethodPost, "/api/chat/send", req, nil)
}

// ListTemplates returns downloadable templates.
func (c *Client) ListTemplates(ctx context.Context) ([]models.TemplateFile, error) {
	data, err := c.call(ctx, nethttp.MethodGet, "/api/templates", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.TemplateFile](data)
}

// ListReports returns generated reports. Both a bare array and
// {files: [...]} are accepted.
func (c *Client) ListReports(ctx context.Context) ([]models.TemplateFile, error) {
	data, err := c.call(ctx, nethttp.MethodGet, "/api/report", nil)
	if err != nil {
		return nil, err
	}
	return decodeWrappedList[models.TemplateFile](data, "files")
}
