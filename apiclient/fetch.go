package apiclient

import (
	"context"
	"errors"

	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
)

type fetchCall struct {
	cancel context.CancelFunc
}

// Fetch is a GET where only the newest call per key matters. Starting a fetch cancels the one
// still in flight for the same key, and the superseded call returns an error for which
// IsAborted is true.
func (c *Client) Fetch(ctx context.Context, key, path string, out any) error {
	ctx, cancel := context.WithCancel(ctx)
	call := &fetchCall{cancel: cancel}

	c.fetchMu.Lock()
	if previous, ok := c.inflight[key]; ok {
		previous.cancel()
	}
	c.inflight[key] = call
	c.fetchMu.Unlock()

	defer func() {
		c.fetchMu.Lock()
		if c.inflight[key] == call {
			delete(c.inflight, key)
		}
		c.fetchMu.Unlock()
		cancel()
	}()

	err := c.Get(ctx, path, out)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) && c.superseded(key, call) {
		return viaticoserrors.Wrapf(viaticoserrors.ErrAborted, "fetch %s", key)
	}
	return err
}

func (c *Client) superseded(key string, call *fetchCall) bool {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	return c.inflight[key] != call
}
