// Package reddit publishes captions as self posts through Reddit's OAuth API.
//
// Every Publish performs a fresh password-grant token exchange followed by a
// single submit call; tokens are never cached and nothing is retried.
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialrelay/internal/relay"
)

const (
	// DefaultAuthBaseURL hosts the OAuth token endpoint.
	DefaultAuthBaseURL = "https://www.reddit.com"
	// DefaultAPIBaseURL hosts authenticated API calls.
	DefaultAPIBaseURL = "https://oauth.reddit.com"
	// DefaultUserAgent is suffixed with " by <username>".
	DefaultUserAgent = "ease-of-business-script/1.0"
	// DefaultPostText is the body of every self post.
	DefaultPostText = "Posted via Ease of Business 🚀"
	// DefaultTimeout bounds each of the two calls.
	DefaultTimeout = 30 * time.Second

	maxBody = 1 << 20
)

// Config holds the script-app credentials and endpoint settings.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Subreddit    string
	AuthBaseURL  string
	APIBaseURL   string
	UserAgent    string
	PostText     string
	Timeout      time.Duration
}

// Missing lists the unset credential variables.
func (c Config) Missing() []string {
	fields := []struct {
		env   string
		value string
	}{
		{"REDDIT_CLIENT_ID", c.ClientID},
		{"REDDIT_CLIENT_SECRET", c.ClientSecret},
		{"REDDIT_USERNAME", c.Username},
		{"REDDIT_PASSWORD", c.Password},
		{"REDDIT_SUBREDDIT", c.Subreddit},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.env)
		}
	}
	return missing
}

// Publisher submits text posts to one subreddit.
type Publisher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs a Publisher, filling endpoint defaults.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Publisher {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = DefaultAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	cfg.AuthBaseURL = strings.TrimRight(cfg.AuthBaseURL, "/")
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.PostText == "" {
		cfg.PostText = DefaultPostText
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{cfg: cfg, client: client, logger: logger}
}

// Platform implements relay.Publisher.
func (p *Publisher) Platform() relay.Platform { return relay.Reddit }

// Publish posts sub.Caption as the title of a self post. Media is ignored.
func (p *Publisher) Publish(ctx context.Context, sub relay.Submission) (string, error) {
	if missing := p.cfg.Missing(); len(missing) > 0 {
		return "", &relay.MissingCredentialsError{Provider: "Reddit", Variables: missing}
	}
	if sub.Media.Present() {
		p.logger.Debug("media attached but reddit posts are text-only; ignoring it")
	}

	token, err := p.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	p.logger.Debug("submitting post", zap.String("subreddit", p.cfg.Subreddit))
	return p.submit(ctx, token, sub.Caption)
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Scope       string          `json:"scope"`
	Error       json.RawMessage `json:"error"`
}

// AccessToken exchanges the configured username/password for a bearer token.
func (p *Publisher) AccessToken(ctx context.Context) (string, error) {
	if missing := p.cfg.Missing(); len(missing) > 0 {
		return "", &relay.MissingCredentialsError{Provider: "Reddit", Variables: missing}
	}
	form := url.Values{
		"grant_type": {"password"},
		"username":   {p.cfg.Username},
		"password":   {p.cfg.Password},
	}
	req, err := p.newFormRequest(ctx, p.cfg.AuthBaseURL+"/api/v1/access_token", form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)

	var tok tokenResponse
	if err := p.do(req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		p.logger.Warn("token response carried no access token", zap.ByteString("error", tok.Error))
		return "", &relay.ProviderError{Provider: "reddit", Reason: "No access token"}
	}
	return tok.AccessToken, nil
}

type submitResponse struct {
	JSON struct {
		Errors []json.RawMessage `json:"errors"`
		Data   struct {
			URL  string `json:"url"`
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	} `json:"json"`
}

func (p *Publisher) submit(ctx context.Context, token, caption string) (string, error) {
	form := url.Values{
		"sr":       {p.cfg.Subreddit},
		"kind":     {"self"},
		"title":    {caption},
		"text":     {p.cfg.PostText},
		"api_type": {"json"},
	}
	req, err := p.newFormRequest(ctx, p.cfg.APIBaseURL+"/api/submit", form)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "bearer "+token)

	var resp submitResponse
	if err := p.do(req, &resp); err != nil {
		return "", err
	}
	if len(resp.JSON.Errors) > 0 {
		return "", &relay.ProviderError{Provider: "reddit", Reason: "API Error: " + compactJSON(resp.JSON.Errors)}
	}
	if resp.JSON.Data.URL != "" {
		p.logger.Info("post created", zap.String("url", resp.JSON.Data.URL))
		return "Post created", nil
	}
	return "", nil
}

func (p *Publisher) newFormRequest(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.userAgent())
	return req, nil
}

func (p *Publisher) userAgent() string {
	return p.cfg.UserAgent + " by " + p.cfg.Username
}

type errorBody struct {
	Message string `json:"message"`
}

// do runs req under the per-call timeout and decodes a 2xx JSON body into out.
// A 2xx body that is not JSON leaves out untouched.
func (p *Publisher) do(req *http.Request, out any) error {
	ctx, cancel := context.WithTimeout(req.Context(), p.cfg.Timeout)
	defer cancel()

	resp, err := p.client.Do(req.WithContext(ctx))
	if err != nil {
		return err //nolint:wrapcheck // relay.FailureReason unwraps *url.Error itself
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := relay.StatusReason(resp.StatusCode)
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			reason = eb.Message
		}
		p.logger.Warn("reddit rejected request",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(raw, 512)),
		)
		return &relay.ProviderError{Provider: "reddit", StatusCode: resp.StatusCode, Reason: reason}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	// An undecodable 2xx body reads as empty; callers map missing fields to outcomes.
	if err := json.Unmarshal(raw, out); err != nil {
		p.logger.Debug("reddit response is not JSON",
			zap.String("path", req.URL.Path),
			zap.Error(err),
			zap.ByteString("body", truncate(raw, 512)),
		)
	}
	return nil
}

// compactJSON renders v the way a JavaScript client would with JSON.stringify.
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
