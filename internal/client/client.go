// client - типизированный клиент REST API трекера метрик.
//
// Используется в двух экземплярах: для вызовов аутентификации (обычный
// http.Client, без обновления токена) и для ресурсов (http.Client поверх
// transport.Pipeline).
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
	"strings"
	"time"
)

type Client struct {
	base    string
	hc      *http.Client
	timeout time.Duration
}

// New - baseURL вида http://host:8000/api; timeout применяется, если у ctx нет дедлайна.
func New(baseURL string, hc *http.Client, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client.New: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client.New: base url %q: scheme and host are required", baseURL)
	}

	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{base: strings.TrimRight(u.String(), "/"), hc: hc, timeout: timeout}, nil
}

func (c *Client) url(path string) string { return c.base + path }

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", op, decodeError(resp))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode: %w", op, err)
	}

	return nil
}

// page - список DRF с пагинацией.
type page[T any] struct {
	Results []T `json:"results"`
}

// list принимает и голый массив, и {"results": [...]}.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var p page[T]
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*l = p.Results
		return nil
	}

	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

func getList[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	var out list[T]
	if err := c.do(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	if out == nil {
		return []T{}, nil
	}

	return out, nil
}

func itemPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}
