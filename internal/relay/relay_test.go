package relay_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/socialrelay/internal/notify"
	"github.com/JakeFAU/socialrelay/internal/notify/memory"
	"github.com/JakeFAU/socialrelay/internal/relay"
)

func TestSubmit_ValidationFailuresContactNobody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sub    relay.Submission
		reason string
	}{
		{
			name:   "empty caption",
			sub:    relay.Submission{Caption: "", Platforms: []relay.Platform{relay.Telegram}},
			reason: "Caption is required",
		},
		{
			name:   "whitespace caption",
			sub:    relay.Submission{Caption: "  \n\t", Platforms: []relay.Platform{relay.Telegram}},
			reason: "Caption is required",
		},
		{
			name:   "no platforms",
			sub:    relay.Submission{Caption: "hi"},
			reason: "At least one platform must be selected",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tg := &fakePublisher{platform: relay.Telegram}
			rd := &fakePublisher{platform: relay.Reddit}
			r := relay.New([]relay.Publisher{tg, rd}, nil, fixedIDs{}, nil, zap.NewNop())

			_, err := r.Submit(context.Background(), tt.sub)
			require.Error(t, err)
			require.True(t, relay.IsValidation(err))
			require.Equal(t, tt.reason, err.Error())
			require.Zero(t, tg.Calls())
			require.Zero(t, rd.Calls())
		})
	}
}

func TestSubmit_TelegramTextOnly(t *testing.T) {
	t.Parallel()

	tg := &fakePublisher{platform: relay.Telegram, detail: "Text sent"}
	rd := &fakePublisher{platform: relay.Reddit}
	r := relay.New([]relay.Publisher{tg, rd}, nil, fixedIDs{id: "sub-1"}, nil, nil)

	report, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "Hello world",
		Platforms: []relay.Platform{relay.Telegram},
	})
	require.NoError(t, err)
	require.Equal(t, "sub-1", report.SubmissionID)
	require.Equal(t, []string{"Telegram: Success - Text sent"}, report.Lines())
	require.Equal(t, 1, tg.Calls())
	require.Zero(t, rd.Calls())
}

func TestSubmit_CanonicalOrderAndIsolation(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []relay.Platform
	record := func(p relay.Platform) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, p)
	}

	tg := &fakePublisher{
		platform: relay.Telegram,
		err:      &relay.ProviderError{Provider: "telegram", StatusCode: 400, Reason: "Bad Request: chat not found"},
		onCall:   record,
	}
	rd := &fakePublisher{platform: relay.Reddit, detail: "Post created", onCall: record}
	r := relay.New([]relay.Publisher{rd, tg}, nil, fixedIDs{id: "x"}, nil, nil)

	report, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "both",
		Platforms: []relay.Platform{relay.Reddit, relay.Telegram},
	})
	require.NoError(t, err)
	require.Equal(t, []relay.Platform{relay.Telegram, relay.Reddit}, order)
	require.Equal(t, []string{
		"Telegram: Failed - Bad Request: chat not found",
		"Reddit: Success - Post created",
	}, report.Lines())
	assert.False(t, report.Results[0].Outcome.OK())
	assert.True(t, report.Results[1].Outcome.OK())
}

func TestSubmit_MissingPublisher(t *testing.T) {
	t.Parallel()

	r := relay.New(nil, nil, fixedIDs{id: "x"}, nil, nil)
	report, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "nobody home",
		Platforms: []relay.Platform{relay.Reddit},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Reddit: Failed - Reddit publisher not available"}, report.Lines())
}

func TestSubmit_TransportErrorHidesURL(t *testing.T) {
	t.Parallel()

	tg := &fakePublisher{
		platform: relay.Telegram,
		err: &url.Error{
			Op:  "Post",
			URL: "https://api.telegram.org/botSECRET/sendMessage",
			Err: context.DeadlineExceeded,
		},
	}
	r := relay.New([]relay.Publisher{tg}, nil, fixedIDs{id: "x"}, nil, nil)

	report, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "slow",
		Platforms: []relay.Platform{relay.Telegram},
	})
	require.NoError(t, err)
	require.Equal(t, "Telegram: Failed - context deadline exceeded", report.Lines()[0])
	require.NotContains(t, report.Lines()[0], "SECRET")
}

func TestSubmit_NotIdempotent(t *testing.T) {
	t.Parallel()

	tg := &fakePublisher{platform: relay.Telegram}
	r := relay.New([]relay.Publisher{tg}, nil, &counterIDs{}, nil, nil)
	sub := relay.Submission{Caption: "again", Platforms: []relay.Platform{relay.Telegram}}

	first, err := r.Submit(context.Background(), sub)
	require.NoError(t, err)
	second, err := r.Submit(context.Background(), sub)
	require.NoError(t, err)

	require.Equal(t, 2, tg.Calls())
	require.NotEqual(t, first.SubmissionID, second.SubmissionID)
	require.Equal(t, "Telegram: Success", second.Lines()[0])
}

func TestSubmit_IDGeneratorFailure(t *testing.T) {
	t.Parallel()

	tg := &fakePublisher{platform: relay.Telegram}
	r := relay.New([]relay.Publisher{tg}, nil, fixedIDs{err: errors.New("entropy exhausted")}, nil, nil)

	_, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "x",
		Platforms: []relay.Platform{relay.Telegram},
	})
	require.Error(t, err)
	require.False(t, relay.IsValidation(err))
	require.Zero(t, tg.Calls())
}

func TestSubmit_NotifiesEvent(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	notifier := memory.New()
	tg := &fakePublisher{platform: relay.Telegram, detail: "Photo sent"}
	rd := &fakePublisher{platform: relay.Reddit, err: &relay.MissingCredentialsError{
		Provider:  "Reddit",
		Variables: []string{"REDDIT_CLIENT_ID"},
	}}
	r := relay.New([]relay.Publisher{tg, rd}, notifier, fixedIDs{id: "evt-1"}, fixedClock{now: now}, nil)

	_, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "pic",
		Platforms: []relay.Platform{relay.Telegram, relay.Reddit},
		Media:     &relay.Media{Filename: "a.jpg", Data: []byte("1234")},
	})
	require.NoError(t, err)

	events := notifier.Events()
	require.Len(t, events, 1)
	evt := events[0]
	require.Equal(t, "evt-1", evt.ID)
	require.Equal(t, now, evt.ReceivedAt)
	require.Equal(t, []string{"telegram", "reddit"}, evt.Platforms)
	require.True(t, evt.HasMedia)
	require.Equal(t, 4, evt.MediaBytes)
	require.Equal(t, []notify.EventResult{
		{Platform: "telegram", Status: "success", Detail: "Photo sent"},
		{Platform: "reddit", Status: "failure", Detail: "Reddit credentials not configured"},
	}, evt.Results)
}

type prefixHasher struct{ err error }

func (h prefixHasher) Hash(data []byte) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "digest:" + string(data), nil
}

func TestSubmit_EventCarriesMediaDigest(t *testing.T) {
	t.Parallel()

	notifier := memory.New()
	tg := &fakePublisher{platform: relay.Telegram, detail: "Photo sent"}
	r := relay.New([]relay.Publisher{tg}, notifier, fixedIDs{id: "x"}, nil, nil).UseHasher(prefixHasher{})

	_, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "pic",
		Platforms: []relay.Platform{relay.Telegram},
		Media:     &relay.Media{Data: []byte("abc")},
	})
	require.NoError(t, err)
	_, err = r.Submit(context.Background(), relay.Submission{
		Caption:   "text",
		Platforms: []relay.Platform{relay.Telegram},
	})
	require.NoError(t, err)

	events := notifier.Events()
	require.Len(t, events, 2)
	require.Equal(t, "digest:abc", events[0].MediaSHA256)
	require.Empty(t, events[1].MediaSHA256)
}

func TestSubmit_HasherFailureStillNotifies(t *testing.T) {
	t.Parallel()

	notifier := memory.New()
	tg := &fakePublisher{platform: relay.Telegram, detail: "Photo sent"}
	r := relay.New([]relay.Publisher{tg}, notifier, fixedIDs{id: "x"}, nil, nil).
		UseHasher(prefixHasher{err: errors.New("boom")})

	_, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "pic",
		Platforms: []relay.Platform{relay.Telegram},
		Media:     &relay.Media{Data: []byte("abc")},
	})
	require.NoError(t, err)
	events := notifier.Events()
	require.Len(t, events, 1)
	require.Empty(t, events[0].MediaSHA256)
	require.Equal(t, 3, events[0].MediaBytes)
}

func TestSubmit_NotifierErrorIsIgnored(t *testing.T) {
	t.Parallel()

	tg := &fakePublisher{platform: relay.Telegram}
	r := relay.New([]relay.Publisher{tg}, failingNotifier{}, fixedIDs{id: "x"}, nil, nil)

	report, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "x",
		Platforms: []relay.Platform{relay.Telegram},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
}

func TestSubmit_MissingCredentialsLogsVariables(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	tg := &fakePublisher{platform: relay.Telegram, err: &relay.MissingCredentialsError{
		Provider:  "Telegram",
		Variables: []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"},
	}}
	r := relay.New([]relay.Publisher{tg}, nil, fixedIDs{id: "x"}, nil, zap.New(core))

	report, err := r.Submit(context.Background(), relay.Submission{
		Caption:   "hi",
		Platforms: []relay.Platform{relay.Telegram},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Telegram: Failed - Telegram credentials not configured"}, report.Lines())

	entries := logs.FilterMessage("publish failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, []interface{}{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"}, entries[0].ContextMap()["missing"])
}

func TestParsePlatforms(t *testing.T) {
	t.Parallel()

	got, err := relay.ParsePlatforms([]string{" Reddit", "telegram", "reddit", ""})
	require.NoError(t, err)
	require.Equal(t, []relay.Platform{relay.Telegram, relay.Reddit}, got)

	_, err = relay.ParsePlatforms([]string{"", " "})
	require.Error(t, err)
	require.Equal(t, "At least one platform must be selected", err.Error())

	_, err = relay.ParsePlatforms([]string{"telegram", "myspace"})
	require.Error(t, err)
	require.True(t, relay.IsValidation(err))
	require.Equal(t, `Unsupported platform "myspace"`, err.Error())
}

func TestOutcomeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Success", relay.Succeeded("").Text())
	assert.Equal(t, "Success - Post created", relay.Succeeded("Post created").Text())
	assert.Equal(t, "Failed - No access token", relay.Failed("No access token").Text())
	assert.Equal(t, "Reddit: Failed - x", relay.Result{Platform: relay.Reddit, Outcome: relay.Failed("x")}.String())
}

func TestFailureReason(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", relay.FailureReason(nil))
	assert.Equal(t, "boom", relay.FailureReason(errors.New("boom")))
	assert.Equal(t, "nope", relay.FailureReason(fmt.Errorf("wrapped: %w",
		&relay.ProviderError{Provider: "reddit", Reason: "nope"})))
	assert.Equal(t, "request failed with status code 503", relay.StatusReason(503))
}

// --- fakes ---

type fakePublisher struct {
	platform relay.Platform
	detail   string
	err      error
	onCall   func(relay.Platform)

	mu    sync.Mutex
	calls int
}

func (f *fakePublisher) Platform() relay.Platform { return f.platform }

func (f *fakePublisher) Publish(context.Context, relay.Submission) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(f.platform)
	}
	return f.detail, f.err
}

func (f *fakePublisher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixedIDs struct {
	id  string
	err error
}

func (f fixedIDs) NewID() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.id == "" {
		return "fixed", nil
	}
	return f.id, nil
}

type counterIDs struct {
	mu sync.Mutex
	n  int
}

func (c *counterIDs) NewID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("id-%d", c.n), nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notify.SubmissionEvent) (string, error) {
	return "", errors.New("topic unavailable")
}

func (failingNotifier) Close() error { return nil }
