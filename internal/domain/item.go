package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Item is a core entity describing one piece of content from one feed.
// Items are value objects: created by the normalizer, enriched once,
// never mutated after dispatch.
type Item struct {
	Source       string
	Title        string
	Link         string
	RawPublished string
	PublishedAt  *time.Time
	Abstract     string
	Fingerprint  string

	// EnrichedText holds the rewritten display text once the enrichment
	// adapter has processed the item; empty until then.
	EnrichedText string
	// Enriched reports that the enrichment call succeeded. A fallback
	// (EnrichedText set to the original title after a service failure)
	// leaves it false, even when the texts happen to coincide.
	Enriched bool
	// FromAbstract distinguishes "summarized from abstract" from
	// "title-only translated".
	FromAbstract bool
}

// fingerprintDelimiter separates title and raw published string in the
// no-link identity input. A title containing the delimiter can in theory
// produce an ambiguous key; accepted trade-off.
const fingerprintDelimiter = "|"

// fingerprintLen is the number of hex characters kept from the SHA-256
// digest. Sixteen chars (64 bits) keeps files readable while making
// accidental collisions negligible at this item volume.
const fingerprintLen = 16

// Fingerprint derives the item's deterministic identity: the link when
// present, else title and raw published string joined by a delimiter.
// Two items with equal fingerprints are the same item regardless of source.
func Fingerprint(it Item) string {
	key := it.Link
	if key == "" {
		key = it.Title + fingerprintDelimiter + it.RawPublished
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
