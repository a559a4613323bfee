// Package webhook consumes signed content change notifications and turns
// them into cache invalidations.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/story"
)

// SignatureHeader carries the payload signature.
const SignatureHeader = "webhook-signature"

const signaturePrefix = "sha1="

// ErrInvalidSignature is returned for unsigned or wrongly signed deliveries.
var ErrInvalidSignature = errors.New("invalid webhook signature")

var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "content_webhook_deliveries_total",
	Help: "Webhook deliveries by outcome",
}, []string{"outcome"})

// Outcome classifies a delivery.
type Outcome string

const (
	// OutcomeAccepted means tags were derived and invalidated.
	OutcomeAccepted Outcome = "accepted"

	// OutcomeIgnored means the delivery was authentic but carried nothing to invalidate.
	OutcomeIgnored Outcome = "ignored"

	// OutcomeFailed means invalidation failed; the notifier is still acknowledged.
	OutcomeFailed Outcome = "failed"

	// OutcomeRejected means the signature did not verify.
	OutcomeRejected Outcome = "rejected"
)

// Invalidator removes cache entries by tag.
type Invalidator interface {
	InvalidateByTags(ctx context.Context, tags []string) error
}

// Config holds webhook secrets. A delivery verifies against any of them.
type Config struct {
	Secret    string
	DevSecret string
}

// Consumer verifies deliveries and invalidates the affected entries.
type Consumer struct {
	invalidator Invalidator
	secrets     [][]byte
	logger      zerolog.Logger
}

// NewConsumer creates a consumer. Empty secrets are ignored; with none
// configured every delivery is rejected.
func NewConsumer(invalidator Invalidator, cfg Config) *Consumer {
	var secrets [][]byte
	for _, s := range []string{cfg.Secret, cfg.DevSecret} {
		if s != "" {
			secrets = append(secrets, []byte(s))
		}
	}
	return &Consumer{
		invalidator: invalidator,
		secrets:     secrets,
		logger:      logging.NewLogger("webhook"),
	}
}

// Handle processes one delivery. Only a rejected delivery returns an error.
func (c *Consumer) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	return c.handle(ctx, ulid.Make().String(), payload, signature)
}

func (c *Consumer) handle(ctx context.Context, eventID string, payload []byte, signature string) (Outcome, error) {
	log := c.logger.With().Str("event_id", eventID).Logger()

	if !c.Verify(payload, signature) {
		deliveriesTotal.WithLabelValues(string(OutcomeRejected)).Inc()
		log.Error().Bool("signed", signature != "").Msg("Webhook signature rejected")
		return OutcomeRejected, ErrInvalidSignature
	}

	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		deliveriesTotal.WithLabelValues(string(OutcomeIgnored)).Inc()
		log.Warn().Err(err).Msg("Malformed webhook payload ignored")
		return OutcomeIgnored, nil
	}

	tags := Tags(p)
	if len(tags) == 0 {
		deliveriesTotal.WithLabelValues(string(OutcomeIgnored)).Inc()
		log.Warn().Str("action", p.Action).Msg("Webhook payload without story_id ignored")
		return OutcomeIgnored, nil
	}

	if err := c.invalidator.InvalidateByTags(ctx, tags); err != nil {
		deliveriesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		log.Error().Err(err).Strs("tags", tags).Msg("Cache invalidation failed")
		return OutcomeFailed, nil
	}

	deliveriesTotal.WithLabelValues(string(OutcomeAccepted)).Inc()
	log.Info().
		Str("action", p.Action).
		Str("story_id", string(p.StoryID)).
		Strs("tags", tags).
		Msg("Cache invalidated")
	return OutcomeAccepted, nil
}

// Verify reports whether signature is the HMAC-SHA1 of payload under any
// configured secret. The value may carry a "sha1=" prefix.
func (c *Consumer) Verify(payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, signaturePrefix)
	if signature == "" {
		return false
	}

	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}

	for _, secret := range c.secrets {
		if hmac.Equal(got, Sign(payload, secret)) {
			return true
		}
	}
	return false
}

// Sign returns the raw HMAC-SHA1 of payload.
func Sign(payload, secret []byte) []byte {
	mac := hmac.New(sha1.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHeaderValue formats the header value for payload.
func SignatureHeaderValue(payload []byte, secret string) string {
	return signaturePrefix + hex.EncodeToString(Sign(payload, []byte(secret)))
}

// Tags derives the invalidation tags of a payload: the story item tag, plus
// the cache version and slug when present. No story id means no tags.
func Tags(p Payload) []string {
	id := strings.TrimSpace(string(p.StoryID))
	if id == "" {
		return nil
	}

	tags := []string{story.ItemTag(id)}
	if cv := strings.TrimSpace(string(p.CV)); cv != "" {
		tags = append(tags, story.VersionTag(cv))
	}
	slug := strings.Trim(p.FullSlug, "/")
	if slug == "" {
		slug = strings.Trim(p.Text, "/")
	}
	if slug != "" {
		tags = append(tags, story.SlugTag(slug))
	}
	return tags
}
