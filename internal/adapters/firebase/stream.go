package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/expressbi/internal/domain"
)

type eventData struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// noReconnect makes the sse client give up after the first failure; LiveList
// decides when to open a new subscription.
type noReconnect struct{}

func (noReconnect) NextBackOff() time.Duration { return -1 }
func (noReconnect) Reset()                     {}

// Subscribe opens the event stream and keeps a local copy of the collection.
// fn receives the whole collection after the initial put and after every
// later put or patch.
func (c *Client) Subscribe(ctx context.Context, fn func(domain.Snapshot)) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := sse.NewClient(c.url())
	client.Connection = c.streamClient
	client.ReconnectStrategy = noReconnect{}
	client.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return fmt.Errorf("%w: stream status %d: %s", domain.ErrStore, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var streamErr error
	tree := json.RawMessage("null")
	err := client.SubscribeRawWithContext(subCtx, func(ev *sse.Event) {
		if streamErr != nil {
			return
		}
		name := string(ev.Event)
		switch name {
		case "put", "patch":
			var d eventData
			if err := json.Unmarshal(ev.Data, &d); err != nil {
				streamErr = fmt.Errorf("%w: evento %s: %v", domain.ErrStore, name, err)
				cancel()
				return
			}
			next, err := applyEvent(tree, name, d)
			if err != nil {
				streamErr = err
				cancel()
				return
			}
			tree = next
			snap, err := decodeSnapshot(tree)
			if err != nil {
				streamErr = err
				cancel()
				return
			}
			fn(snap)
		case "keep-alive":
		case "cancel", "auth_revoked":
			streamErr = fmt.Errorf("%w: stream %s: %s", domain.ErrStore, name, ev.Data)
			cancel()
		default:
			log.Debug().Str("event", name).Msg("evento ignorado")
		}
	})
	if streamErr != nil {
		return streamErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if errors.Is(err, domain.ErrStore) {
			return err
		}
		return fmt.Errorf("%w: stream: %v", domain.ErrStore, err)
	}
	return fmt.Errorf("%w: stream cerrado", domain.ErrStore)
}

func applyEvent(tree json.RawMessage, name string, d eventData) (json.RawMessage, error) {
	segs := splitPath(d.Path)
	if name == "put" {
		return setPath(tree, segs, d.Data)
	}
	var children map[string]json.RawMessage
	if err := json.Unmarshal(d.Data, &children); err != nil {
		return nil, fmt.Errorf("%w: patch: %v", domain.ErrStore, err)
	}
	var err error
	for k, v := range children {
		p := append(append([]string{}, segs...), splitPath(k)...)
		if tree, err = setPath(tree, p, v); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// setPath replaces the value at segs. A null value deletes the node and
// objects left empty collapse to null.
func setPath(doc json.RawMessage, segs []string, val json.RawMessage) (json.RawMessage, error) {
	if len(segs) == 0 {
		if isNull(val) {
			return json.RawMessage("null"), nil
		}
		return val, nil
	}
	m := map[string]json.RawMessage{}
	if !isNull(doc) {
		if err := json.Unmarshal(doc, &m); err != nil {
			// un valor escalar se reemplaza por un objeto
			m = map[string]json.RawMessage{}
		}
	}
	child, err := setPath(m[segs[0]], segs[1:], val)
	if err != nil {
		return nil, err
	}
	if isNull(child) {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(m)
}
