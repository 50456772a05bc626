package synth

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"

	"github.com/hyperjump/fuda/internal/models"
)

var augmentLabels = map[models.Tier]string{
	models.TierSlow:     "Hint:",
	models.TierModerate: "Example:",
	models.TierFast:     "Advanced Note:",
}

var augmentLines = map[models.Tier][]string{
	models.TierSlow: {
		"Focus on understanding the core concepts before moving to more complex topics.",
		"Try restating this idea in your own words before checking the answer.",
		"Link this point to an example you already know.",
	},
	models.TierModerate: {
		"This concept is applied in various computer science scenarios and practical applications.",
		"Think of a real project where this idea would change a design decision.",
		"Consider how this point shows up in everyday tools and systems.",
	},
	models.TierFast: {
		"Consider how this relates to other computer science principles and advanced applications.",
		"Compare this with neighbouring concepts and the trade-offs between them.",
		"Ask what breaks if this assumption no longer holds.",
	},
}

// AugmentLabel returns the label that opens the closing paragraph of every back for t.
func AugmentLabel(t models.Tier) string {
	if l, ok := augmentLabels[t]; ok {
		return l
	}
	return augmentLabels[models.DefaultTier]
}

// Augment appends the tier's closing paragraph to back. variant picks the sentence.
func Augment(t models.Tier, back string, variant int) string {
	lines, ok := augmentLines[t]
	if !ok {
		lines = augmentLines[models.DefaultTier]
	}
	if variant < 0 {
		variant = -variant
	}
	return back + "\n\n" + AugmentLabel(t) + " " + lines[variant%len(lines)]
}

// Rand returns a generator seeded from the slide, tier and card position, so
// regenerating the same deck makes the same choices.
func Rand(contentID string, tier models.Tier, index int) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(contentID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(tier))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(index))
	_, _ = h.Write(buf[:])
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
