// Package remote reads and writes expenses through the expense REST service.
// Every call is authorised with the bearer token of the logged-in person.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expenseview/internal/core"
	"expenseview/internal/log"
	"expenseview/internal/source"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

var _ source.Source = (*Client)(nil)

// ErrMissingToken is returned without issuing a request when no token is
// available.
var ErrMissingToken = errors.New("token is not available")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// UserMessage is the server's explanation, suitable for a status banner.
func (e *APIError) UserMessage() string { return e.Message }

// TokenSource yields the bearer token of the logged-in person.
type TokenSource interface {
	Token() string
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client is a source.Source backed by the expense REST service.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	logger *log.Logger
}

// New returns a Client for cfg.BaseURL. tokens may be nil for a client that
// is only used to authenticate.
func New(cfg Config, tokens TokenSource) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Client{
		base:   base,
		http:   cfg.HTTPClient,
		tokens: tokens,
		logger: cfg.Logger.WithComponent(log.ComponentRemote),
	}, nil
}

type addRequest struct {
	Expense  core.Expense `json:"expense"`
	PersonID int64        `json:"personId"`
}

type monthTotal struct {
	Total decimal.Decimal `json:"total"`
}

func (c *Client) FetchAll(ctx context.Context, personID int64) ([]core.Expense, error) {
	var out []core.Expense
	err := c.do(ctx, http.MethodGet, "/api/expense/getAll/"+strconv.FormatInt(personID, 10), nil, &out)
	return out, err
}

func (c *Client) FetchByCategory(ctx context.Context, category string, personID int64) ([]core.Expense, error) {
	path := "/api/expense/byCategory/" + url.PathEscape(category) + "/" + strconv.FormatInt(personID, 10)
	var out []core.Expense
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/api/expense/getAllCategories", nil, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	err := c.do(ctx, http.MethodDelete, "/api/expense/delete/"+strconv.FormatInt(id, 10), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", source.ErrNotFound, err)
	}
	return err
}

// Add posts the expense. The service answers with plain text; when it
// answers with the stored expense instead, that is returned.
func (c *Client) Add(ctx context.Context, e core.Expense, personID int64) (core.Expense, error) {
	e.PersonID = personID
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/expense/add", addRequest{Expense: e, PersonID: personID}, &raw); err != nil {
		return core.Expense{}, err
	}
	var saved core.Expense
	if len(raw) > 0 && json.Unmarshal(raw, &saved) == nil && saved.HasID() {
		return saved, nil
	}
	return e, nil
}

func (c *Client) CurrentMonthTotal(ctx context.Context, personID int64) (decimal.Decimal, error) {
	var out monthTotal
	if err := c.do(ctx, http.MethodGet, "/api/expense/currentMonthTotal/"+strconv.FormatInt(personID, 10), nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Total, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string      `json:"token"`
	Person core.Person `json:"person"`
}

// Authenticate exchanges credentials for a token and returns the person
// with the token attached.
func (c *Client) Authenticate(ctx context.Context, email, password string) (core.Person, error) {
	body, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return core.Person{}, fmt.Errorf("encode credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/auth/authenticate"), bytes.NewReader(body))
	if err != nil {
		return core.Person{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(email+":"+password)))

	var out authResponse
	if err := c.send(req, "/api/auth/authenticate", &out); err != nil {
		return core.Person{}, err
	}
	if out.Token == "" {
		return core.Person{}, errors.New("authenticate: empty token in response")
	}
	out.Person.Token = out.Token
	return out.Person, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		c.logger.WarnContext(ctx, "Request skipped, no token", log.FieldMethod, method, log.FieldPath, path)
		return ErrMissingToken
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, path string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(req.Context(), "Remote call",
		log.FieldMethod, req.Method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(req.Method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", path, err)
		}
		*raw = b
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
	}
	return apiErr
}
