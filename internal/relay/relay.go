package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/socialrelay/internal/metrics"
	"github.com/JakeFAU/socialrelay/internal/notify"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces submission IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher digests uploaded media for submission events.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Relay dispatches submissions to the registered publishers.
type Relay struct {
	publishers map[Platform]Publisher
	notifier   notify.Notifier
	idGen      IDGenerator
	clock      Clock
	hasher     Hasher
	logger     *zap.Logger
}

// New constructs a Relay. A nil notifier disables submission events; a nil logger
// is replaced with a no-op logger.
func New(
	publishers []Publisher,
	notifier notify.Notifier,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *Relay {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byPlatform := make(map[Platform]Publisher, len(publishers))
	for _, p := range publishers {
		byPlatform[p.Platform()] = p
	}
	return &Relay{
		publishers: byPlatform,
		notifier:   notifier,
		idGen:      idGen,
		clock:      clock,
		logger:     logger,
	}
}

// Submit validates sub and publishes it to every requested platform, one after
// another. Only validation and ID generation failures are returned as errors;
// platform failures are reported as Failure outcomes inside the Report.
func (r *Relay) Submit(ctx context.Context, sub Submission) (Report, error) {
	if err := sub.Validate(); err != nil {
		metrics.ObserveSubmission(false)
		return Report{}, err
	}
	if sub.ID == "" && r.idGen != nil {
		id, err := r.idGen.NewID()
		if err != nil {
			return Report{}, fmt.Errorf("generate submission id: %w", err)
		}
		sub.ID = id
	}
	metrics.ObserveSubmission(true)

	logger := r.logger.With(zap.String("submission_id", sub.ID))
	logger.Info("submission received",
		zap.Int("caption_len", len(sub.Caption)),
		zap.Strings("platforms", platformNames(sub.Platforms)),
		zap.Bool("has_media", sub.Media.Present()),
	)
	if sub.Media.Present() {
		metrics.ObserveMedia(len(sub.Media.Data))
	}

	report := Report{SubmissionID: sub.ID}
	for _, platform := range Platforms() {
		if !sub.Requests(platform) {
			continue
		}
		report.Results = append(report.Results, r.publish(ctx, logger, platform, sub))
	}

	r.notify(ctx, logger, sub, report)
	return report, nil
}

func (r *Relay) publish(ctx context.Context, logger *zap.Logger, platform Platform, sub Submission) Result {
	logger = logger.With(zap.String("platform", string(platform)))
	pub, ok := r.publishers[platform]
	if !ok {
		logger.Warn("no publisher registered")
		metrics.ObservePublish(string(platform), string(StatusFailure), 0)
		return Result{Platform: platform, Outcome: Failed(platform.Label() + " publisher not available")}
	}

	start := time.Now()
	detail, err := pub.Publish(ctx, sub)
	elapsed := time.Since(start)

	outcome := Succeeded(detail)
	if err != nil {
		outcome = Failed(FailureReason(err))
		fields := []zap.Field{zap.Error(err), zap.Duration("elapsed", elapsed)}
		var credsErr *MissingCredentialsError
		if errors.As(err, &credsErr) {
			fields = append(fields, zap.Strings("missing", credsErr.Variables))
		}
		logger.Warn("publish failed", fields...)
	} else {
		logger.Info("publish succeeded", zap.String("detail", detail), zap.Duration("elapsed", elapsed))
	}
	metrics.ObservePublish(string(platform), string(outcome.Status()), elapsed)
	return Result{Platform: platform, Outcome: outcome}
}

// UseHasher makes submission events carry a digest of the uploaded media.
func (r *Relay) UseHasher(h Hasher) *Relay {
	r.hasher = h
	return r
}

func (r *Relay) notify(ctx context.Context, logger *zap.Logger, sub Submission, report Report) {
	evt := notify.SubmissionEvent{
		ID:        sub.ID,
		Platforms: platformNames(sub.Platforms),
		HasMedia:  sub.Media.Present(),
	}
	if r.clock != nil {
		evt.ReceivedAt = r.clock.Now()
	}
	if sub.Media.Present() {
		evt.MediaBytes = len(sub.Media.Data)
		if r.hasher != nil {
			digest, err := r.hasher.Hash(sub.Media.Data)
			if err != nil {
				logger.Warn("media digest failed", zap.Error(err))
			}
			evt.MediaSHA256 = digest
		}
	}
	for _, res := range report.Results {
		evt.Results = append(evt.Results, notify.EventResult{
			Platform: string(res.Platform),
			Status:   string(res.Outcome.Status()),
			Detail:   res.Outcome.Detail(),
		})
	}
	if _, err := r.notifier.Notify(ctx, evt); err != nil {
		logger.Warn("submission event not delivered", zap.Error(err))
	}
}

func platformNames(platforms []Platform) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, string(p))
	}
	return out
}
