// Package relay validates form submissions and fans them out to the configured
// social platform publishers.
//
// A submission is processed on the caller's goroutine: each requested platform is
// attempted exactly once, in canonical order (telegram, then reddit), and every
// attempt produces one Result regardless of how its siblings fared. Publishers
// surface configuration and provider failures as errors; Relay folds them into
// Failure outcomes so only validation problems reach the HTTP layer.
package relay
