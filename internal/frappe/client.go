package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/paydesk/internal/obs"
	"github.com/noah-isme/paydesk/internal/remoteaction"
	"github.com/noah-isme/paydesk/internal/resilience"
)

// Whitelisted methods exposed by the payments app.
const (
	MethodCreateDeleteWebhooks = "payments.payment_gateways.doctype.stripe_settings.stripe_settings.create_delete_webhooks"
	MethodGetPaymentURL        = "payments.www.payments.index.get_payment_url"
	MethodPing                 = "ping"
)

const maxBodyBytes = 1 << 20

var clientNopLogger = zerolog.Nop()

// Options configures a Client.
type Options struct {
	BaseURL   string
	Token     string
	CSRFToken string
	Timeout   time.Duration
	Breaker   *resilience.Breaker
	Transport http.RoundTripper
	Logger    *zerolog.Logger
}

// Client talks to a Frappe site over its /api endpoints. It implements
// remoteaction.Caller.
type Client struct {
	baseURL   string
	token     string
	csrfToken string
	http      *http.Client
	logger    *zerolog.Logger
}

// New builds a Client whose outbound requests pass through the breaker and
// are traced with otelhttp.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("frappe: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("frappe: parse base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rt := otelhttp.NewTransport(&resilience.Transport{Base: opts.Transport, Breaker: opts.Breaker})
	logger := opts.Logger
	if logger == nil {
		logger = &clientNopLogger
	}
	return &Client{
		baseURL:   base,
		token:     opts.Token,
		csrfToken: opts.CSRFToken,
		http:      &http.Client{Timeout: timeout, Transport: rt},
		logger:    logger,
	}, nil
}

// BaseURL returns the site root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Call invokes a whitelisted method with form-encoded args. Every failure is
// folded into the returned Response; the payload is cleared whenever Err is set.
func (c *Client) Call(ctx context.Context, method string, args map[string]string) remoteaction.Response {
	form := url.Values{}
	for k, v := range args {
		form.Set(k, v)
	}
	endpoint := c.baseURL + "/api/method/" + url.PathEscape(method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return c.fail(method, "request", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var env envelope
	status, err := c.do(req, &env)
	if err != nil {
		return c.fail(method, "transport", err)
	}
	serverMessages := decodeServerMessages(env.ServerMessages)
	if status < 200 || status >= 300 || env.ExcType != "" {
		err := newError(status, env, serverMessages)
		c.record(method, "exception")
		c.logger.Debug().Err(err).Str("method", method).Msg("frappe_call_failed")
		return remoteaction.Response{Err: err, ServerMessages: serverMessages}
	}
	c.record(method, "ok")
	return remoteaction.Response{Message: env.Message, ServerMessages: serverMessages}
}

// GetDoc fetches a single document through the REST resource API.
func (c *Client) GetDoc(ctx context.Context, doctype, name string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/api/resource/%s/%s", c.baseURL, url.PathEscape(doctype), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	var body struct {
		Data map[string]any `json:"data"`
		envelope
	}
	status, err := c.do(req, &body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 || body.ExcType != "" {
		return nil, newError(status, body.envelope, decodeServerMessages(body.ServerMessages))
	}
	if body.Data == nil {
		return nil, fmt.Errorf("frappe: %s %q returned no data", doctype, name)
	}
	return body.Data, nil
}

// Ping checks that the site answers its ping method.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/method/"+MethodPing, nil)
	if err != nil {
		return err
	}
	var env envelope
	status, err := c.do(req, &env)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return newError(status, env, nil)
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-Frappe-CSRF-Token", c.csrfToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 300 {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *Client) fail(method, result string, err error) remoteaction.Response {
	c.record(method, result)
	c.logger.Debug().Err(err).Str("method", method).Msg("frappe_call_failed")
	return remoteaction.Response{Err: err}
}

func (c *Client) record(method, result string) {
	if obs.FrappeCallTotal != nil {
		obs.FrappeCallTotal.WithLabelValues(method, result).Inc()
	}
}
