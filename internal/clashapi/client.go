// Package clashapi is a small client for the Clash of Clans REST API.
package clashapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// TokenStore supplies the current API token.
type TokenStore interface {
	Token() string
}

// KeyRefresher issues a new API token when the current one is rejected.
type KeyRefresher interface {
	Refresh(ctx context.Context) error
}

// API is the subset of the game API the bot uses.
type API interface {
	GetClan(ctx context.Context, tag string) (*Clan, error)
	GetClanMembers(ctx context.Context, tag string) ([]ClanMember, error)
	GetCurrentWar(ctx context.Context, clanTag string) (*War, error)
	GetPlayer(ctx context.Context, tag string) (*Player, error)
	SearchClans(ctx context.Context, name string, limit int) ([]Clan, error)
}

// Client implements API over HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	refresher KeyRefresher
	logger    *slog.Logger
}

var _ API = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithRefresher enables a single retry after regenerating the key.
func WithRefresher(r KeyRefresher) Option {
	return func(c *Client) { c.refresher = r }
}

// WithHTTPClient replaces the base transport. The bearer transport is
// layered on top of it.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// tokenSource adapts a TokenStore to oauth2.TokenSource so the bearer
// header always carries the latest stored token.
type tokenSource struct {
	store TokenStore
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	tok := s.store.Token()
	if tok == "" {
		return nil, errors.New("clash api: no token configured")
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// NewClient builds a client that authenticates with the token in store and
// issues at most rps requests per second.
func NewClient(baseURL string, store TokenStore, rps float64, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http = &http.Client{
		Timeout: c.http.Timeout,
		Transport: &oauth2.Transport{
			Source: tokenSource{store: store},
			Base:   base,
		},
	}
	return c
}

// GetClan fetches a clan profile.
func (c *Client) GetClan(ctx context.Context, tag string) (*Clan, error) {
	var clan Clan
	if err := c.get(ctx, "/clans/"+escapeTag(tag), nil, &clan); err != nil {
		return nil, err
	}
	return &clan, nil
}

// GetClanMembers fetches a clan's member list.
func (c *Client) GetClanMembers(ctx context.Context, tag string) ([]ClanMember, error) {
	var page struct {
		Items []ClanMember `json:"items"`
	}
	if err := c.get(ctx, "/clans/"+escapeTag(tag)+"/members", nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetCurrentWar fetches the clan's current or most recent war.
func (c *Client) GetCurrentWar(ctx context.Context, clanTag string) (*War, error) {
	var war War
	if err := c.get(ctx, "/clans/"+escapeTag(clanTag)+"/currentwar", nil, &war); err != nil {
		return nil, err
	}
	return &war, nil
}

// GetPlayer fetches a player profile.
func (c *Client) GetPlayer(ctx context.Context, tag string) (*Player, error) {
	var p Player
	if err := c.get(ctx, "/players/"+escapeTag(tag), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchClans searches clans by name.
func (c *Client) SearchClans(ctx context.Context, name string, limit int) ([]Clan, error) {
	q := url.Values{}
	q.Set("name", name)
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var page struct {
		Items []Clan `json:"items"`
	}
	if err := c.get(ctx, "/clans", q, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// get performs a GET and retries once after a key refresh when the API
// rejects the token.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	err := c.do(ctx, path, query, out)
	if err == nil || c.refresher == nil || !IsAccessDenied(err) {
		return err
	}

	c.logger.WarnContext(ctx, "Game API rejected token, refreshing key",
		attr.String("path", path),
		attr.Error(err),
	)
	if rerr := c.refresher.Refresh(ctx); rerr != nil {
		return fmt.Errorf("%w (key refresh failed: %v)", err, rerr)
	}
	return c.do(ctx, path, query, out)
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clash api request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, apiErr)
		if apiErr.Reason == "" {
			apiErr.Reason = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func escapeTag(tag string) string {
	return url.PathEscape(NormalizeTag(tag))
}
