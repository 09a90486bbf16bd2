package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if httpRequestsTotal == nil || httpRequestDurationSeconds == nil ||
		relaySubmissionsTotal == nil || relayPublishTotal == nil ||
		relayPublishDuration == nil || relayMediaBytes == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObservePublish(t *testing.T) {
	Init()
	success := relayPublishTotal.WithLabelValues("metrics-test", "success")
	failure := relayPublishTotal.WithLabelValues("metrics-test", "failure")
	before := testutil.ToFloat64(success)

	ObservePublish("metrics-test", "success", 150*time.Millisecond)
	ObservePublish("metrics-test", "success", 10*time.Millisecond)

	if got := testutil.ToFloat64(success) - before; got != 2 {
		t.Errorf("expected 2 publish observations, got %f", got)
	}
	if got := testutil.ToFloat64(failure); got != 0 {
		t.Errorf("expected no failure observations, got %f", got)
	}
}

func TestObserveSubmission(t *testing.T) {
	Init()
	accepted := relaySubmissionsTotal.WithLabelValues("accepted")
	rejected := relaySubmissionsTotal.WithLabelValues("rejected")
	beforeAccepted := testutil.ToFloat64(accepted)
	beforeRejected := testutil.ToFloat64(rejected)

	ObserveSubmission(true)
	ObserveSubmission(false)
	ObserveSubmission(false)

	if got := testutil.ToFloat64(accepted) - beforeAccepted; got != 1 {
		t.Errorf("expected 1 accepted submission, got %f", got)
	}
	if got := testutil.ToFloat64(rejected) - beforeRejected; got != 2 {
		t.Errorf("expected 2 rejected submissions, got %f", got)
	}
}

func TestObserveMedia(t *testing.T) {
	ObserveMedia(2048)
	if val := testutil.CollectAndCount(relayMediaBytes); val != 1 {
		t.Errorf("expected relay_media_bytes to be collected, got %d", val)
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("telegram", 250*time.Millisecond)
	if val := testutil.CollectAndCount(rateLimitDelaySeconds); val < 1 {
		t.Fatalf("expected ratelimit delay series, got %d", val)
	}
}
