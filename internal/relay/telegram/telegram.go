// Package telegram publishes submissions to a single chat through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/socialrelay/internal/relay"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"
	// DefaultTimeout bounds every Bot API call.
	DefaultTimeout = 30 * time.Second

	envBotToken = "TELEGRAM_BOT_TOKEN"
	envChatID   = "TELEGRAM_CHAT_ID"

	defaultFilename    = "image.jpg"
	defaultContentType = "image/jpeg"
	maxErrorBody       = 64 * 1024
)

// Config holds the bot credentials and endpoint settings.
type Config struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
}

// Publisher sends captions, with or without a photo, to the configured chat.
type Publisher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs a Publisher. Missing credentials are not an error here; they
// are reported on every Publish call instead.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Publisher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
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
func (p *Publisher) Platform() relay.Platform { return relay.Telegram }

// Missing lists the unset credential variables.
func (c Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.BotToken) == "" {
		missing = append(missing, envBotToken)
	}
	if strings.TrimSpace(c.ChatID) == "" {
		missing = append(missing, envChatID)
	}
	return missing
}

// Publish sends a photo with caption when media is present, otherwise a text message.
func (p *Publisher) Publish(ctx context.Context, sub relay.Submission) (string, error) {
	if missing := p.cfg.Missing(); len(missing) > 0 {
		return "", &relay.MissingCredentialsError{Provider: "Telegram", Variables: missing}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if sub.Media.Present() {
		p.logger.Debug("sending photo", zap.Int("bytes", len(sub.Media.Data)))
		if err := p.sendPhoto(ctx, sub.Caption, sub.Media); err != nil {
			return "", err
		}
		return "Photo sent", nil
	}

	p.logger.Debug("sending text message")
	if err := p.sendMessage(ctx, sub.Caption); err != nil {
		return "", err
	}
	return "Text sent", nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (p *Publisher) sendMessage(ctx context.Context, caption string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    p.cfg.ChatID,
		Text:      caption,
		ParseMode: tgbotapi.ModeHTML,
	})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req)
}

func (p *Publisher) sendPhoto(ctx context.Context, caption string, media *relay.Media) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", p.cfg.ChatID); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption field: %w", err)
	}

	filename := media.Filename
	if filename == "" {
		filename = defaultFilename
	}
	contentType := media.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="photo"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(media.Data); err != nil {
		return fmt.Errorf("write photo part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.methodURL("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return p.do(req)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (p *Publisher) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", p.cfg.BaseURL, p.cfg.BotToken, method)
}

// do executes req; any 2xx is success, anything else becomes a ProviderError
// carrying Telegram's description when the body has one.
func (p *Publisher) do(req *http.Request) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err //nolint:wrapcheck // relay.FailureReason unwraps *url.Error itself
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	reason := relay.StatusReason(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiResp tgbotapi.APIResponse
	if json.Unmarshal(raw, &apiResp) == nil && apiResp.Description != "" {
		reason = apiResp.Description
	}
	fields := []zap.Field{
		zap.Int("status", resp.StatusCode),
		zap.Int("error_code", apiResp.ErrorCode),
		zap.String("description", apiResp.Description),
	}
	if params := apiResp.Parameters; params != nil {
		if params.RetryAfter > 0 {
			fields = append(fields, zap.Int("retry_after", params.RetryAfter))
		}
		if params.MigrateToChatID != 0 {
			fields = append(fields, zap.Int64("migrate_to_chat_id", params.MigrateToChatID))
		}
	}
	p.logger.Warn("telegram rejected request", fields...)
	return &relay.ProviderError{Provider: "telegram", StatusCode: resp.StatusCode, Reason: reason}
}
