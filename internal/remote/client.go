// Package remote implements repository.Store against a record server over
// HTTP.
package remote

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
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

// ErrNoToken is returned by CurrentUserID when the client has no token.
var ErrNoToken = errors.New("no auth token configured")

// fetchAllPageSize is the page size FetchAll walks the collection with.
const fetchAllPageSize = query.MaxLimit

// Client is a record-store client for the nanomgmt record server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses. It unwraps to the matching store
// sentinel so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return repository.ErrNotFound
	case http.StatusBadRequest:
		return query.ErrInvalidPredicate
	case http.StatusUnprocessableEntity:
		return domain.ErrInvalidRecord
	default:
		return nil
	}
}

type recordList struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalItems int             `json:"totalItems"`
	Items      []domain.Record `json:"items"`
}

func (c *Client) Collection(name domain.Collection) repository.Collection {
	return &collection{client: c, name: name}
}

// CurrentUserID reads the subject of the client's token. The signature is
// not checked here; the server does that on every request.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	if c.Token == "" {
		return "", ErrNoToken
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

// Me asks the server who the token belongs to.
func (c *Client) Me(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "me", nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

type collection struct {
	client *Client
	name   domain.Collection
}

func (c *collection) path(rest ...string) string {
	parts := append([]string{"collections", url.PathEscape(string(c.name)), "records"}, rest...)
	return strings.Join(parts, "/")
}

func (c *collection) FetchAll(ctx context.Context, filter query.Predicate) ([]domain.Record, error) {
	out := []domain.Record{}
	for page := 1; ; page++ {
		p, err := c.FetchPage(ctx, page, fetchAllPageSize, filter, query.Sort{})
		if err != nil {
			return nil, err
		}
		out = append(out, p.Items...)
		if len(p.Items) == 0 || len(out) >= p.AllCount {
			return out, nil
		}
	}
}

func (c *collection) FetchPage(ctx context.Context, page, limit int, filter query.Predicate, sort query.Sort) (repository.Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("perPage", strconv.Itoa(limit))
	if !filter.IsEmpty() {
		params.Set("filter", filter.String())
	}
	if s := sort.String(); s != "" {
		params.Set("sort", s)
	}
	var resp recordList
	if err := c.client.do(ctx, http.MethodGet, c.path()+"?"+params.Encode(), nil, &resp); err != nil {
		return repository.Page{}, fmt.Errorf("listing %s: %w", c.name, err)
	}
	items := resp.Items
	if items == nil {
		items = []domain.Record{}
	}
	return repository.Page{Items: items, Page: resp.Page, PerPage: resp.PerPage, AllCount: resp.TotalItems}, nil
}

func (c *collection) FetchOne(ctx context.Context, id string) (domain.Record, error) {
	var rec domain.Record
	if err := c.client.do(ctx, http.MethodGet, c.path(url.PathEscape(id)), nil, &rec); err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", c.name, id, err)
	}
	return rec, nil
}

func (c *collection) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	var out domain.Record
	if err := c.client.do(ctx, http.MethodPost, c.path(), rec, &out); err != nil {
		return nil, fmt.Errorf("creating %s record: %w", c.name, err)
	}
	return out, nil
}

func (c *collection) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	var out domain.Record
	if err := c.client.do(ctx, http.MethodPatch, c.path(url.PathEscape(id)), patch, &out); err != nil {
		return nil, fmt.Errorf("updating %s %q: %w", c.name, id, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

var _ repository.Store = (*Client)(nil)
