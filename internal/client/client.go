// Package client is a typed HTTP client for the rewardpoints API. It owns a
// Session and attaches its bearer token to every call. Mutating calls are
// never retried: after a network error, re-read state before trying again.
package client

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

	"rewardpoints/internal/apperr"
	"rewardpoints/internal/auth"

	log "github.com/sirupsen/logrus"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		session:    NewSession(store),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends one request and decodes the response envelope into out. A
// non-zero envelope code becomes an *apperr.Error of the matching kind.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperr.Internal(fmt.Sprintf("unexpected response %d from %s", resp.StatusCode, path), err)
	}
	if env.Code != apperr.CodeSuccess {
		return apperr.New(apperr.KindForCode(env.Code), env.Message)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, password, role string) (auth.Identity, error) {
	var id auth.Identity
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	}, &id)
	return id, err
}

// Login exchanges credentials for a token pair, persists it and resolves
// the identity, from the token claims when present or from /api/me.
func (c *Client) Login(ctx context.Context, username, password string) (auth.Identity, error) {
	var pair auth.TokenPair
	err := c.do(ctx, http.MethodPost, "/api/token", map[string]string{
		"username": username,
		"password": password,
	}, &pair)
	if err != nil {
		return auth.Identity{}, err
	}

	if id, err := DecodeIdentity(pair.Access); err == nil {
		if err := c.session.start(&pair, &id); err != nil {
			return auth.Identity{}, err
		}
		return id, nil
	}

	if err := c.session.start(&pair, nil); err != nil {
		return auth.Identity{}, err
	}
	id, err := c.Me(ctx)
	if err != nil {
		_ = c.session.Clear()
		return auth.Identity{}, err
	}
	c.session.setIdentity(id)
	return id, nil
}

// Logout revokes the refresh token on a best-effort basis and always clears
// the local session. Calling it without a session is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	if refresh := c.session.RefreshToken(); refresh != "" {
		if err := c.do(ctx, http.MethodPost, "/api/logout", map[string]string{"refresh": refresh}, nil); err != nil {
			log.WithError(err).Debug("server-side logout failed")
		}
	}
	return c.session.Clear()
}

// RefreshAccess replaces the access token using the refresh token.
func (c *Client) RefreshAccess(ctx context.Context) error {
	refresh := c.session.RefreshToken()
	if refresh == "" {
		return apperr.Authentication("not logged in")
	}
	var pair auth.TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/token/refresh", map[string]string{"refresh": refresh}, &pair); err != nil {
		return err
	}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	id, err := DecodeIdentity(pair.Access)
	if err != nil {
		return err
	}
	return c.session.start(&pair, &id)
}

func (c *Client) Me(ctx context.Context) (auth.Identity, error) {
	var id auth.Identity
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &id)
	return id, err
}

func (c *Client) Children(ctx context.Context) ([]Child, error) {
	var out []Child
	err := c.do(ctx, http.MethodGet, "/api/children", nil, &out)
	return out, err
}

func (c *Client) LinkChild(ctx context.Context, username string) (*Child, error) {
	var out Child
	if err := c.do(ctx, http.MethodPost, "/api/children", map[string]string{"username": username}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ListOptions struct {
	Child    int64
	Status   string
	Page     int
	PageSize int
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Child != 0 {
		q.Set("child", strconv.FormatInt(o.Child, 10))
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListTransactions(ctx context.Context, opts ListOptions) (*TransactionPage, error) {
	var out TransactionPage
	if err := c.do(ctx, http.MethodGet, "/api/score-transactions"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransaction(ctx context.Context, transactionNo string) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodGet, "/api/score-transactions/"+url.PathEscape(transactionNo), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdjustPoints(ctx context.Context, in AdjustInput) (*LedgerResult, error) {
	var out LedgerResult
	if err := c.do(ctx, http.MethodPost, "/api/score-transactions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRewards(ctx context.Context) ([]Reward, error) {
	var out []Reward
	err := c.do(ctx, http.MethodGet, "/api/rewards", nil, &out)
	return out, err
}

func (c *Client) Redeem(ctx context.Context, rewardID int64) (*LedgerResult, error) {
	var out LedgerResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/rewards/%d/redeem", rewardID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRequest(ctx context.Context, rewardID int64) (*RewardRequest, error) {
	var out RewardRequest
	if err := c.do(ctx, http.MethodPost, "/api/reward-requests", map[string]int64{"reward": rewardID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApproveRequest(ctx context.Context, requestID int64) (*Approval, error) {
	var out Approval
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/reward-requests/%d/approve", requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRequests(ctx context.Context, opts ListOptions) (*RequestPage, error) {
	var out RequestPage
	if err := c.do(ctx, http.MethodGet, "/api/reward-requests"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsKind reports whether err is an API error of the given kind.
func IsKind(err error, kind apperr.Kind) bool {
	var ae *apperr.Error
	return errors.As(err, &ae) && ae.Kind == kind
}
