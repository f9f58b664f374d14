package identify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cardsort/internal/cards"
	"cardsort/internal/logging"
	"cardsort/internal/scryfall"
	"cardsort/internal/textutil"
)

// Policy holds the confidence tiers and the fuzzy-match cutoff. Tiers are
// ordered exact > remote > ocr-only; validation of that ordering happens at
// config load.
type Policy struct {
	ExactMatchConfidence  float64
	RemoteMatchConfidence float64
	OCROnlyConfidence     float64
	SimilarityCutoff      float64
}

// DefaultPolicy returns the standard confidence tiers.
func DefaultPolicy() Policy {
	return Policy{
		ExactMatchConfidence:  0.9,
		RemoteMatchConfidence: 0.85,
		OCROnlyConfidence:     0.5,
		SimilarityCutoff:      0.5,
	}
}

// RemoteLookup is the online exact-name lookup the identifier falls back to
// when the local index has no acceptable match.
type RemoteLookup interface {
	Named(ctx context.Context, name string) (*scryfall.Card, error)
}

// Identifier resolves OCR text to a card identity using the local index
// first and a remote lookup second.
type Identifier struct {
	index  *cards.Index
	remote RemoteLookup
	policy Policy
	logger *slog.Logger
}

// NewIdentifier creates an identifier. remote may be nil, in which case the
// online fallback tier is skipped.
func NewIdentifier(index *cards.Index, remote RemoteLookup, policy Policy, logger *slog.Logger) *Identifier {
	if index == nil {
		index = cards.NewIndex(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Identifier{
		index:  index,
		remote: remote,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "identifier"),
	}
}

// Identify resolves raw OCR text to a Recognition. It never returns an
// error: remote failures and misses degrade the confidence tier, and empty
// input yields the zero-confidence failure result.
func (id *Identifier) Identify(ctx context.Context, rawText string) cards.Recognition {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return cards.Recognition{}
	}

	candidates := variants(rawText)

	for _, candidate := range candidates {
		if meta, ok := id.index.Lookup(candidate); ok {
			return id.fromMetadata(meta, id.policy.ExactMatchConfidence)
		}
	}

	bestCandidate, bestName, bestScore := id.bestFuzzy(candidates)
	if bestName != "" && bestScore >= id.policy.SimilarityCutoff {
		if meta, ok := id.index.Lookup(bestName); ok {
			confidence := bestScore
			if confidence > id.policy.ExactMatchConfidence {
				confidence = id.policy.ExactMatchConfidence
			}
			id.logger.Debug("fuzzy index match",
				slog.String("query", bestCandidate),
				logging.String(logging.FieldCard, meta.Name),
				slog.Float64("score", bestScore))
			return id.fromMetadata(meta, confidence)
		}
	}

	query := rawText
	if bestCandidate != "" {
		query = bestCandidate
	}
	if recognition, ok := id.remoteLookup(ctx, query); ok {
		return recognition
	}

	return cards.Recognition{Confidence: id.policy.OCROnlyConfidence}
}

// bestFuzzy scores every candidate against every index name and returns the
// best pairing even when it falls below the cutoff; the caller decides
// whether the score is acceptable, and a sub-cutoff best candidate still
// seeds the remote query.
func (id *Identifier) bestFuzzy(candidates []string) (candidate, name string, score float64) {
	for _, c := range candidates {
		for _, indexed := range id.index.Names() {
			if s := textutil.Similarity(c, indexed); s > score {
				candidate, name, score = c, indexed, s
			}
		}
	}
	if candidate == "" && len(candidates) > 0 {
		candidate = candidates[0]
	}
	return candidate, name, score
}

func (id *Identifier) remoteLookup(ctx context.Context, query string) (cards.Recognition, bool) {
	if id.remote == nil {
		return cards.Recognition{}, false
	}

	// OCR output is frequently all-caps or all-lower; send a conventionally
	// cased name so logs and downstream records stay readable.
	query = cases.Title(language.English).String(strings.ToLower(query))

	card, err := id.remote.Named(ctx, query)
	if err != nil {
		if !errors.Is(err, scryfall.ErrNotFound) {
			id.logger.Warn("remote lookup failed",
				slog.String("query", query),
				logging.Error(err))
		}
		return cards.Recognition{}, false
	}

	return cards.Recognition{
		Name:            card.Name,
		SetCode:         card.Set,
		CollectorNumber: card.CollectorNumber,
		Confidence:      id.policy.RemoteMatchConfidence,
		Colors:          append([]string(nil), card.Colors...),
		ColorIdentity:   append([]string(nil), card.ColorIdentity...),
	}, true
}

func (id *Identifier) fromMetadata(meta cards.Metadata, confidence float64) cards.Recognition {
	return cards.Recognition{
		Name:            meta.Name,
		SetCode:         meta.SetCode,
		CollectorNumber: meta.CollectorNumber,
		Confidence:      confidence,
		Colors:          append([]string(nil), meta.Colors...),
		ColorIdentity:   append([]string(nil), meta.ColorIdentity...),
	}
}
