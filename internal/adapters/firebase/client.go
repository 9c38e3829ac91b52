// Package firebase is a REST binding to a hosted realtime database. Reads and
// writes go to {databaseURL}/{path}.json and subscriptions use the server-sent
// events stream of the same URL.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/expressbi/internal/config"
	"github.com/phenrril/expressbi/internal/domain"
)

type Client struct {
	baseURL    string
	path       string
	httpClient *http.Client
	// sin timeout: el stream queda abierto mientras viva la suscripción
	streamClient *http.Client
}

// New builds a client for CollectionPath. DatabaseURL wins over ProjectID.
func New(cfg config.Firebase) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.DatabaseURL), "/")
	if base == "" && cfg.ProjectID != "" {
		base = "https://" + cfg.ProjectID + "-default-rtdb.firebaseio.com"
	}
	if base == "" {
		return nil, errors.New("firebase: FIREBASE_DATABASE_URL faltante")
	}
	return &Client{
		baseURL:      base,
		path:         domain.CollectionPath,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		streamClient: &http.Client{},
	}, nil
}

func (c *Client) url() string {
	return c.baseURL + "/" + c.path + ".json"
}

type pushResp struct {
	Name string `json:"name"`
}

func (c *Client) Push(ctx context.Context, cu domain.Customer) (string, error) {
	body, err := json.Marshal(cu.WithoutID())
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: push: %v", domain.ErrStore, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: push status %d: %s", domain.ErrStore, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var pr pushResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("%w: push response: %v", domain.ErrStore, err)
	}
	if pr.Name == "" {
		return "", fmt.Errorf("%w: push sin clave", domain.ErrStore)
	}
	return pr.Name, nil
}

func (c *Client) Get(ctx context.Context) (domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", domain.ErrStore, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", domain.ErrStore, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get status %d: %s", domain.ErrStore, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return decodeSnapshot(b)
}

// decodeSnapshot turns the collection JSON into entries sorted by key, the
// order the store enumerates children in. Every key yields one entry.
func decodeSnapshot(b []byte) (domain.Snapshot, error) {
	if isNull(b) {
		return domain.Snapshot{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", domain.ErrStore, err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snap := make(domain.Snapshot, 0, len(keys))
	for _, k := range keys {
		var cu domain.Customer
		if err := json.Unmarshal(m[k], &cu); err != nil {
			// la clave existe aunque el valor no sea un objeto
			log.Warn().Err(err).Str("key", k).Msg("documento ilegible")
			cu = domain.BlankCustomer()
		}
		cu.ID = ""
		snap = append(snap, domain.Entry{Key: k, Customer: cu})
	}
	return snap, nil
}

func isNull(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
