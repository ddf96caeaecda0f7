package structure

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/retry"
)

const (
	// DefaultSpeakerTimeout bounds one speaker identification call.
	DefaultSpeakerTimeout = 2 * time.Minute
	// DefaultSamplesPerLabel is how many lines per label are sent as context.
	DefaultSamplesPerLabel = 3

	maxSampleLen = 240
)

// DefaultGenericPattern matches placeholder labels produced by diarization.
var DefaultGenericPattern = regexp.MustCompile(`(?i)^\s*(speaker[ _-]?\d+|spk[ _-]?\d+|unknown( speaker)?|guest \d+)\s*$`)

// SpeakerResolution is the outcome of speaker resolution.
type SpeakerResolution struct {
	// Mapping holds every raw label that was renamed.
	Mapping map[string]string
	// Segments are copies of the input with resolved labels.
	Segments []core.Segment
	// Calls is the number of collaborator calls made.
	Calls int
}

// SpeakerResolver maps generic speaker labels to names.
type SpeakerResolver struct {
	identifier      ai.SpeakerIdentifier
	generic         *regexp.Regexp
	maxAttempts     int
	retryDelay      time.Duration
	callTimeout     time.Duration
	samplesPerLabel int
	logger          *slog.Logger
}

// SpeakerOption configures a SpeakerResolver.
type SpeakerOption func(*SpeakerResolver)

// WithGenericPattern replaces the placeholder label pattern.
func WithGenericPattern(re *regexp.Regexp) SpeakerOption {
	return func(r *SpeakerResolver) {
		if re != nil {
			r.generic = re
		}
	}
}

// WithSpeakerAttempts sets the total number of identification calls allowed.
func WithSpeakerAttempts(n int) SpeakerOption {
	return func(r *SpeakerResolver) { r.maxAttempts = n }
}

// WithSpeakerRetryDelay sets the base backoff between attempts.
func WithSpeakerRetryDelay(d time.Duration) SpeakerOption {
	return func(r *SpeakerResolver) { r.retryDelay = d }
}

// WithSpeakerTimeout bounds each identification call.
func WithSpeakerTimeout(d time.Duration) SpeakerOption {
	return func(r *SpeakerResolver) { r.callTimeout = d }
}

// WithSamplesPerLabel sets how many lines per label are sent.
func WithSamplesPerLabel(n int) SpeakerOption {
	return func(r *SpeakerResolver) { r.samplesPerLabel = n }
}

// WithSpeakerLogger sets the logger.
func WithSpeakerLogger(l *slog.Logger) SpeakerOption {
	return func(r *SpeakerResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewSpeakerResolver creates a resolver around a speaker collaborator.
func NewSpeakerResolver(identifier ai.SpeakerIdentifier, opts ...SpeakerOption) (*SpeakerResolver, error) {
	if identifier == nil {
		return nil, ErrIdentifierRequired
	}
	r := &SpeakerResolver{
		identifier:      identifier,
		generic:         DefaultGenericPattern,
		maxAttempts:     DefaultMaxAttempts,
		retryDelay:      DefaultRetryDelay,
		callTimeout:     DefaultSpeakerTimeout,
		samplesPerLabel: DefaultSamplesPerLabel,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxAttempts < 1 {
		return nil, retry.ErrInvalidMaxAttempts
	}
	r.logger = r.logger.With("component", "speaker_resolver")
	return r, nil
}

// IsGeneric reports whether label is a placeholder. Empty labels are not:
// they carry no speaker information to resolve.
func (r *SpeakerResolver) IsGeneric(label string) bool {
	return label != "" && r.generic.MatchString(label)
}

// Resolve renames generic labels. Hints are applied first and the
// collaborator is not called when nothing generic remains.
func (r *SpeakerResolver) Resolve(ctx context.Context, ec core.EpisodeContext, segments []core.Segment) (*SpeakerResolution, error) {
	logger := r.logger.With("episode_id", ec.EpisodeID)
	mapping := make(map[string]string)

	labels := distinctLabels(segments)
	for _, label := range labels {
		if hint, ok := ec.Metadata.SpeakerHints[label]; ok && strings.TrimSpace(hint) != "" && !r.IsGeneric(hint) {
			mapping[label] = strings.TrimSpace(hint)
		}
	}

	pending := r.unresolved(labels, mapping)
	res := &SpeakerResolution{Mapping: mapping}
	if len(pending) == 0 {
		res.Segments = applyMapping(segments, mapping)
		return res, nil
	}

	samples := r.samples(segments, pending)
	out := retry.Run(ctx, r.maxAttempts, r.retryDelay, func(ctx context.Context, attempt int) retry.Outcome[struct{}] {
		res.Calls++
		remaining := r.unresolved(labels, mapping)
		req := ai.SpeakerRequest{
			Title:       ec.Metadata.Title,
			Description: ec.Metadata.Description,
			Labels:      remaining,
			Samples:     samples,
			Known:       maps.Clone(mapping),
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
		resp, err := r.identifier.IdentifySpeakers(callCtx, req)
		if err != nil {
			logger.Warn("speaker call failed", "attempt", attempt, "err", err)
			if ai.IsTransient(err) {
				return retry.Retryable[struct{}](err)
			}
			return retry.Fatal[struct{}](&core.SpeakerIdentificationError{Unresolved: remaining, Err: err})
		}

		if resp != nil {
			for _, label := range remaining {
				name := strings.TrimSpace(resp.Speakers[label])
				if name != "" && !r.IsGeneric(name) {
					mapping[label] = name
				}
			}
		}
		if left := r.unresolved(labels, mapping); len(left) > 0 {
			logger.Warn("generic speaker labels remain", "attempt", attempt, "labels", left)
			return retry.Retryable[struct{}](&core.SpeakerIdentificationError{Unresolved: left})
		}
		return retry.Ok(struct{}{})
	})

	if _, err := out.Unwrap(); err != nil {
		var sie *core.SpeakerIdentificationError
		if errors.As(err, &sie) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &core.SpeakerIdentificationError{Unresolved: r.unresolved(labels, mapping), Err: err}
	}

	logger.Debug("speakers resolved", "labels", len(mapping), "calls", res.Calls)
	res.Segments = applyMapping(segments, mapping)
	return res, nil
}

// unresolved returns generic labels without a mapping, in first-seen order.
func (r *SpeakerResolver) unresolved(labels []string, mapping map[string]string) []string {
	var out []string
	for _, label := range labels {
		if _, ok := mapping[label]; !ok && r.IsGeneric(label) {
			out = append(out, label)
		}
	}
	return out
}

// samples collects the first few non-trivial lines of each pending label.
func (r *SpeakerResolver) samples(segments []core.Segment, pending []string) map[string][]string {
	out := make(map[string][]string, len(pending))
	for _, seg := range segments {
		if !slices.Contains(pending, seg.Speaker) || len(out[seg.Speaker]) >= r.samplesPerLabel {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if runes := []rune(text); len(runes) > maxSampleLen {
			text = string(runes[:maxSampleLen])
		}
		out[seg.Speaker] = append(out[seg.Speaker], text)
	}
	return out
}

func distinctLabels(segments []core.Segment) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, seg := range segments {
		if !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			labels = append(labels, seg.Speaker)
		}
	}
	return labels
}

func applyMapping(segments []core.Segment, mapping map[string]string) []core.Segment {
	out := make([]core.Segment, len(segments))
	for i, seg := range segments {
		if name, ok := mapping[seg.Speaker]; ok {
			seg.Speaker = name
		}
		out[i] = seg
	}
	return out
}
