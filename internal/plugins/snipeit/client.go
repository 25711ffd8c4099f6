package snipeit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/tidwall/gjson"
)

const apiPrefix = "/api/v1"

// client talks to one Snipe-IT instance. Requests and replies are raw JSON
// so payloads are built with sjson and read with gjson.
type client struct {
	url  string
	base string
	http *kratoshttp.Client
}

func dial(ctx context.Context, rawURL, key string, timeout time.Duration) (*client, error) {
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse %q: want scheme://host[/path]", rawURL)
	}

	hc, err := kratoshttp.NewClient(ctx,
		kratoshttp.WithEndpoint(u.Scheme+"://"+u.Host),
		kratoshttp.WithTimeout(timeout),
		kratoshttp.WithMiddleware(BearerMiddleware(key)),
		kratoshttp.WithRequestEncoder(encodeRaw),
		kratoshttp.WithResponseDecoder(decodeRaw),
	)
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", u.Host, err)
	}
	return &client{url: rawURL, base: u.Path + apiPrefix, http: hc}, nil
}

func (c *client) Close() error {
	return c.http.Close()
}

func encodeRaw(_ context.Context, _ string, in any) ([]byte, error) {
	if b, ok := in.([]byte); ok {
		return b, nil
	}
	return nil, fmt.Errorf("unsupported request body %T", in)
}

func decodeRaw(_ context.Context, res *http.Response, out any) error {
	defer res.Body.Close()
	p, ok := out.(*[]byte)
	if !ok {
		return fmt.Errorf("unsupported reply %T", out)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	*p = data
	return nil
}

// ErrUnauthorized is returned when Snipe-IT rejects the API key.
var ErrUnauthorized = errors.New("snipe-it rejected the API key")

func (c *client) do(ctx context.Context, method, path string, body []byte) (gjson.Result, error) {
	var (
		args  any
		reply []byte
	)
	if body != nil {
		args = body
	}
	if err := c.http.Invoke(ctx, method, c.base+path, args, &reply); err != nil {
		if kerrors.IsUnauthorized(err) {
			return gjson.Result{}, ErrUnauthorized
		}
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !gjson.ValidBytes(reply) {
		return gjson.Result{}, fmt.Errorf("%s %s: reply is not JSON", method, path)
	}
	res := gjson.ParseBytes(reply)
	// Snipe-IT reports validation and permission errors with HTTP 200.
	if res.Get("status").String() == "error" {
		return res, fmt.Errorf("%s %s: %s", method, path, res.Get("messages").Raw)
	}
	return res, nil
}

func (c *client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *client) post(ctx context.Context, path string, body []byte) (gjson.Result, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// probe checks that the instance answers an authenticated request.
func (c *client) probe(ctx context.Context) error {
	_, err := c.get(ctx, "/statuslabels", nil)
	return err
}
