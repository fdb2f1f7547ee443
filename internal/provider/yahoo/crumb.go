package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// crumbTimeout bounds a shared handshake, which outlives the caller that
// started it.
const crumbTimeout = 15 * time.Second

// getCrumb returns the cached crumb, running the handshake when none is held.
// Concurrent callers share a single handshake; a caller whose context ends
// stops waiting without cancelling it for the others.
func (c *Client) getCrumb(ctx context.Context) (string, error) {
	if !c.useCrumb {
		return "", nil
	}

	c.mu.RLock()
	crumb := c.crumb
	c.mu.RUnlock()
	if crumb != "" {
		return crumb, nil
	}

	ch := c.sf.DoChan("crumb", func() (any, error) {
		c.mu.RLock()
		held := c.crumb
		c.mu.RUnlock()
		if held != "" {
			return held, nil
		}

		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), crumbTimeout)
		defer cancel()
		fresh, err := c.fetchCrumb(hctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.crumb = fresh
		c.mu.Unlock()
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}

func (c *Client) fetchCrumb(ctx context.Context) (string, error) {
	// The cookie page answers 404 but still sets the session cookie, so only
	// transport errors matter here.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating cookie request: %w", err)
	}
	req.Header = c.header.Clone()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("priming cookie: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	res.Body.Close()

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/test/getcrumb", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating crumb request: %w", err)
	}
	req.Header = c.header.Clone()
	res, err = c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing crumb request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", &StatusError{Path: "/v1/test/getcrumb", StatusCode: res.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	if err != nil {
		return "", fmt.Errorf("reading crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(b))
	if crumb == "" || strings.ContainsAny(crumb, "<>{} ") {
		return "", ErrInvalidCrumb
	}
	return crumb, nil
}
