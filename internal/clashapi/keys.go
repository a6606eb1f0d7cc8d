package clashapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// maxKeys is the developer portal's per-account key limit.
const maxKeys = 10

// CredentialStore supplies the developer portal login and stores the
// resulting token.
type CredentialStore interface {
	Credentials() (email, password string)
	SetToken(token string) error
}

// KeyManager regenerates API keys through the developer portal. Keys are
// bound to the caller's public IP, so a host move invalidates the token.
type KeyManager struct {
	developerURL string
	ipLookupURL  string
	keyName      string
	store        CredentialStore
	httpClient   *http.Client
	logger       *slog.Logger

	mu sync.Mutex
}

var _ KeyRefresher = (*KeyManager)(nil)

// NewKeyManager builds a KeyManager. httpClient may be nil.
func NewKeyManager(developerURL, ipLookupURL, keyName string, store CredentialStore, httpClient *http.Client, logger *slog.Logger) *KeyManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyManager{
		developerURL: strings.TrimRight(developerURL, "/"),
		ipLookupURL:  ipLookupURL,
		keyName:      keyName,
		store:        store,
		httpClient:   httpClient,
		logger:       logger,
	}
}

type apiKey struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Key        string   `json:"key"`
	CIDRRanges []string `json:"cidrRanges"`
}

// Refresh logs in, reuses a key already bound to the current IP, or
// revokes this bot's stale keys and creates a new one. The token is
// persisted through the store.
func (m *KeyManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, password := m.store.Credentials()
	if email == "" || password == "" {
		return errors.New("developer portal credentials are not configured")
	}

	ip, err := m.publicIP(ctx)
	if err != nil {
		return err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	session := &http.Client{Timeout: m.httpClient.Timeout, Transport: m.httpClient.Transport, Jar: jar}

	if err := m.post(ctx, session, "/api/login", map[string]string{"email": email, "password": password}, nil); err != nil {
		return fmt.Errorf("developer portal login: %w", err)
	}

	var list struct {
		Keys []apiKey `json:"keys"`
	}
	if err := m.post(ctx, session, "/api/apikey/list", struct{}{}, &list); err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	for _, k := range list.Keys {
		if k.Name == m.keyName && slices.Contains(k.CIDRRanges, ip) {
			m.logger.InfoContext(ctx, "Reusing existing API key for current IP", attr.String("ip", ip))
			return m.store.SetToken(k.Key)
		}
	}

	remaining := len(list.Keys)
	for _, k := range list.Keys {
		if k.Name != m.keyName {
			continue
		}
		if err := m.post(ctx, session, "/api/apikey/revoke", map[string]string{"id": k.ID}, nil); err != nil {
			return fmt.Errorf("revoke key %s: %w", k.ID, err)
		}
		remaining--
	}
	if remaining >= maxKeys {
		return fmt.Errorf("developer account already has %d keys not owned by %q", remaining, m.keyName)
	}

	var created struct {
		Key apiKey `json:"key"`
	}
	body := map[string]any{
		"name":        m.keyName,
		"description": "Created " + time.Now().UTC().Format(time.RFC3339),
		"cidrRanges":  []string{ip},
		"scopes":      []string{"clash"},
	}
	if err := m.post(ctx, session, "/api/apikey/create", body, &created); err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	if created.Key.Key == "" {
		return errors.New("developer portal returned an empty key")
	}

	m.logger.InfoContext(ctx, "Created new API key", attr.String("ip", ip))
	return m.store.SetToken(created.Key.Key)
}

func (m *KeyManager) publicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ipLookupURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("public ip lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("public ip lookup: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("public ip lookup: %w", err)
	}
	ip := strings.TrimSpace(string(data))
	if ip == "" {
		return "", errors.New("public ip lookup returned nothing")
	}
	return ip, nil
}

func (m *KeyManager) post(ctx context.Context, client *http.Client, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.developerURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
