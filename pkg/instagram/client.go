package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	errs "instabot/pkg/errors"
	"instabot/pkg/logger"
	"instabot/pkg/models"
	"instabot/pkg/retry"
	"instabot/pkg/session"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultCacheSize = 512
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerMinute int
	CacheSize         int
	Retry             *retry.Config
	HTTPClient        *http.Client
	Logger            logger.Logger
}

// Client talks to the Instagram web API on behalf of one logged-in
// session. It is the relationship source, profile source and action
// executor of the bot.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	username   string
	limiter    *rate.Limiter
	retry      *retry.Config
	profiles   *lru.Cache[string, *models.Profile]
	logger     logger.Logger
}

// NewClient creates a client authenticated with sess.
func NewClient(sess *session.Session, opts Options) (*Client, error) {
	if err := sess.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeAuth, err, "unusable session")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	userAgent := sess.UserAgent
	if userAgent == "" {
		userAgent = opts.UserAgent
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	retryCfg := opts.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if retryCfg.Logger == nil {
		retryCfg.Logger = log
	}

	profiles, err := lru.New[string, *models.Profile](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile cache: %w", err)
	}

	base := strings.TrimSuffix(opts.BaseURL, "/")
	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent":       userAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      AppID,
			"X-CSRFToken":      sess.CSRFToken,
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          base + "/",
			"Origin":           base,
			"Cookie":           fmt.Sprintf("sessionid=%s; csrftoken=%s", sess.SessionID, sess.CSRFToken),
		},
		baseURL:  base,
		username: sess.Username,
		limiter:  rate.NewLimiter(limit, 1),
		retry:    retryCfg,
		profiles: profiles,
		logger:   log,
	}, nil
}

// Username returns the account the session belongs to.
func (c *Client) Username() string { return c.username }

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest waits for the pacing limiter and performs one HTTP request with
// the configured headers.
func (c *Client) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// call performs a request under the retry policy and decodes the JSON
// response into target. A nil form sends a GET, otherwise a form POST.
func (c *Client) call(ctx context.Context, rawURL string, form url.Values, target interface{}) error {
	return retry.Do(ctx, func() error {
		return c.once(ctx, rawURL, form, target)
	}, c.retry)
}

func (c *Client) once(ctx context.Context, rawURL string, form url.Values, target interface{}) error {
	method, body := http.MethodGet, io.Reader(nil)
	if form != nil {
		method, body = http.MethodPost, strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "failed to read response body", Code: resp.StatusCode, Err: err}
	}

	if err := c.checkResponseStatus(resp, data); err != nil {
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		bodyPreview := string(data)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{Type: errs.ErrorTypeParsing, Message: "failed to parse JSON", Code: resp.StatusCode, Err: err}
	}
	return nil
}

// checkResponseStatus maps a non-2xx response to a typed error. Instagram
// reports lockouts and expired sessions in the JSON body of 400 responses,
// so the body is consulted before the status code.
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	var payload actionResponse
	_ = json.Unmarshal(body, &payload)

	switch {
	case payload.blocked():
		c.logger.ErrorWithFields("action blocked", fields)
		return &errs.Error{Type: errs.ErrorTypeActionBlocked, Message: payload.Message, Code: resp.StatusCode}
	case payload.Message == "login_required" || payload.Message == "checkpoint_required":
		c.logger.WarnWithFields("authentication error", fields)
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: payload.Message, Code: resp.StatusCode}
	}

	err := errs.FromStatusCode(resp.StatusCode, payload.Message)
	switch err.Type {
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case errs.ErrorTypeNotFound:
		c.logger.DebugWithFields("resource not found", fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}
	return err
}
