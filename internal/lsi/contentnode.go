package lsi

import (
	"math"
	"sort"

	"github.com/nexs-lsi/lsi-core/internal/linalg"
)

// ContentNode holds one document's state: its token multiset, category
// tags, and the two vector representations the index computes for it
// (raw term-space, and LSI-projected once a build has run).
type ContentNode struct {
	tokens     map[string]int
	categories []string

	rawVector linalg.Vector
	rawNorm   linalg.Vector

	lsiVector linalg.Vector
	lsiNorm   linalg.Vector
}

// NewContentNode builds a node from a token multiset. Vectors stay nil
// until the owning index builds them against a WordList.
func NewContentNode(tokens map[string]int) *ContentNode {
	cloned := make(map[string]int, len(tokens))
	for t, c := range tokens {
		cloned[t] = c
	}
	return &ContentNode{tokens: cloned}
}

// Tokens returns the node's token multiset.
func (c *ContentNode) Tokens() map[string]int {
	return c.tokens
}

// Categories returns the live, mutable category list. Callers may
// append/remove in place; doing so never bumps the owning index's version.
func (c *ContentNode) Categories() *[]string {
	return &c.categories
}

// RawVector returns the term-space vector computed at the last build.
func (c *ContentNode) RawVector() linalg.Vector { return c.rawVector }

// LSIVector returns the reduced-rank projection, or nil if the node has
// never survived a build.
func (c *ContentNode) LSIVector() linalg.Vector { return c.lsiVector }

// SearchVector returns lsi_vector if present, else raw_vector. This is
// the polymorphism that lets the same proximity code answer queries
// against both indexed documents and unindexed query strings.
func (c *ContentNode) SearchVector() linalg.Vector {
	if c.lsiVector != nil {
		return c.lsiVector
	}
	return c.rawVector
}

// SearchNorm returns lsi_norm if present, else raw_norm.
func (c *ContentNode) SearchNorm() linalg.Vector {
	if c.lsiNorm != nil {
		return c.lsiNorm
	}
	return c.rawNorm
}

// computeRawVector builds v[wordList.index_of(t)] = count(t) against the
// given WordList (which must already contain every token of c, as the
// caller rebuilds it by unioning all nodes before calling this), then
// applies the log-entropy-like reweighting transform when the document
// is non-trivial.
func (c *ContentNode) computeRawVector(words *WordList, epsilon float64) {
	v := linalg.NewVector(words.Size())
	var total float64
	var distinct int
	for token, count := range c.tokens {
		idx, ok := words.IndexOf(token)
		if !ok {
			continue
		}
		v[idx] = float64(count)
	}
	for _, x := range v {
		if x > 0 {
			total += x
			distinct++
		}
	}

	if total > 1.0 && distinct > 1 {
		var h float64
		for _, x := range v {
			if x <= 0 {
				continue
			}
			p := x / total
			h += p * math.Log(p)
		}
		d := -sign(h) * math.Max(math.Abs(h), epsilon)
		for i, x := range v {
			if x <= 0 {
				continue
			}
			v[i] = math.Log(x+1) / d
		}
	}

	c.rawVector = v
	c.rawNorm = v.Normalize(epsilon)
}

// clearLSI resets the projected representation; called at the start of
// every rebuild before the new projection is assigned.
func (c *ContentNode) clearLSI() {
	c.lsiVector = nil
	c.lsiNorm = nil
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	if x > 0 {
		return 1
	}
	return 0
}

// topStems returns the `count` tokens whose lsi_vector component is
// largest, descending. Requires an indexed node (lsi_vector populated).
func (c *ContentNode) topStems(words *WordList, count int) []string {
	type scored struct {
		token string
		value float64
	}
	scores := make([]scored, 0, len(c.lsiVector))
	for i, v := range c.lsiVector {
		token, ok := words.TokenFor(i)
		if !ok {
			continue
		}
		scores = append(scores, scored{token: token, value: v})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].value > scores[j].value })
	if count > len(scores) {
		count = len(scores)
	}
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = scores[i].token
	}
	return out
}
