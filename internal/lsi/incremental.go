package lsi

import (
	"time"

	"github.com/nexs-lsi/lsi-core/internal/linalg"
)

// incrementalState holds Brand's-update bookkeeping: the thin basis (U,
// s) of the last decomposition, and the policy that forces a full
// rebuild once the vocabulary has grown too far past it.
type incrementalState struct {
	maxRank              int
	vocabGrowthThreshold float64

	u             *linalg.Matrix // vocabulary × rank
	s             linalg.Vector
	vocabAtBuild  int
	activeVersion uint64

	// extraTokens tracks distinct tokens seen since the last full build
	// that are not yet in the frozen word list, so vocabulary growth can
	// be detected even though incremental updates never add dimensions.
	extraTokens map[string]bool
}

// brandUpdate implements the thin-SVD rank-1 column update (§4.6): given
// the current basis (u, s) and a new term-vector c, it returns the
// updated basis, truncated to maxRank columns/values if necessary.
func brandUpdate(u *linalg.Matrix, s linalg.Vector, c linalg.Vector, maxRank int, epsilon float64) (*linalg.Matrix, linalg.Vector) {
	k := len(s)

	m, err := u.Transpose().MulVector(c)
	if err != nil {
		panic("lsi: internal shape invariant violated: " + err.Error())
	}

	uM, err := u.MulVector(m)
	if err != nil {
		panic("lsi: internal shape invariant violated: " + err.Error())
	}
	p, err := c.Sub(uM)
	if err != nil {
		panic("lsi: internal shape invariant violated: " + err.Error())
	}
	rho := p.Magnitude()

	var kMatrix *linalg.Matrix
	var basisExtension *linalg.Matrix // vocabulary × (k+1), the [U | p̂] used to lift U' back to term space

	if rho > epsilon {
		pHat := p.Scale(1 / rho)
		kMatrix = linalg.NewMatrix(k+1, k+1)
		for i := 0; i < k; i++ {
			kMatrix.Set(i, i, s[i])
			kMatrix.Set(i, k, m[i])
		}
		kMatrix.Set(k, k, rho)

		basisExtension = linalg.NewMatrix(u.Rows(), k+1)
		for i := 0; i < u.Rows(); i++ {
			for j := 0; j < k; j++ {
				basisExtension.Set(i, j, u.At(i, j))
			}
			basisExtension.Set(i, k, pHat[i])
		}
	} else {
		// New column lies in the existing span: a rank-preserving rotation.
		kMatrix = linalg.DiagonalMatrix(s)
		basisExtension = u
	}

	res := linalg.JacobiSVD(kMatrix, linalg.DefaultSVDOptions())

	uNew, err := basisExtension.Mul(res.U)
	if err != nil {
		panic("lsi: internal shape invariant violated: " + err.Error())
	}
	sNew := res.S

	if maxRank > 0 && len(sNew) > maxRank {
		truncatedU := linalg.NewMatrix(uNew.Rows(), maxRank)
		for i := 0; i < uNew.Rows(); i++ {
			for j := 0; j < maxRank; j++ {
				truncatedU.Set(i, j, uNew.At(i, j))
			}
		}
		uNew = truncatedU
		sNew = sNew[:maxRank]
	}

	return uNew, sNew
}

// projectBatch returns {Uᵀ c_j} for each vector in cs — the hot re-projection
// path used after a rank change. Runs as a single tight loop per spec.
func projectBatch(u *linalg.Matrix, cs []linalg.Vector) []linalg.Vector {
	ut := u.Transpose()
	out := make([]linalg.Vector, len(cs))
	for i, c := range cs {
		v, err := ut.MulVector(c)
		if err != nil {
			out[i] = nil
			continue
		}
		out[i] = v
	}
	return out
}

// vocabGrowthExceeds reports whether currentVocab has grown beyond
// threshold over vocabAtBuild, forcing a full rebuild.
func vocabGrowthExceeds(vocabAtBuild, currentVocab int, threshold float64) bool {
	if vocabAtBuild == 0 {
		return currentVocab > 0
	}
	growth := float64(currentVocab-vocabAtBuild) / float64(vocabAtBuild)
	return growth > threshold
}

// AddItemIncremental inserts item via Brand's update instead of a full
// rebuild, when incremental mode is enabled and a full build has already
// happened. It falls back to a full BuildIndex when incremental mode is
// disabled, no prior build exists, or vocabulary growth exceeds the
// configured threshold.
func (idx *Index) AddItemIncremental(item string, fetchBody FetchBody, categories ...string) error {
	start := time.Now()
	text, err := resolveText(item, fetchBody)
	if err != nil {
		return err
	}
	tokens := idx.tokenizer(text)

	idx.mu.Lock()

	node, exists := idx.nodes[item]
	if exists {
		node.tokens = cloneTokens(tokens)
		node.clearLSI()
	} else {
		node = NewContentNode(tokens)
		idx.nodes[item] = node
		idx.order = append(idx.order, item)
	}
	*node.Categories() = append(*node.Categories(), categories...)
	idx.version++

	inc := idx.incremental
	canIncremental := inc != nil && inc.u != nil && idx.words != nil
	if canIncremental {
		if inc.extraTokens == nil {
			inc.extraTokens = make(map[string]bool)
		}
		for token := range tokens {
			if _, ok := idx.words.IndexOf(token); !ok {
				inc.extraTokens[token] = true
			}
		}
		newVocab := inc.vocabAtBuild + len(inc.extraTokens)
		if vocabGrowthExceeds(inc.vocabAtBuild, newVocab, inc.vocabGrowthThreshold) {
			canIncremental = false
		}
	}

	if !canIncremental {
		idx.mu.Unlock()
		return idx.BuildIndex(DefaultBuildCutoff)
	}

	node.computeRawVector(idx.words, idx.svdOpts.Epsilon)
	uNew, sNew := brandUpdate(inc.u, inc.s, node.rawVector, inc.maxRank, idx.svdOpts.Epsilon)
	inc.u = uNew
	inc.s = sNew
	inc.activeVersion = idx.version

	cs := make([]linalg.Vector, 0, len(idx.order))
	items := make([]string, 0, len(idx.order))
	for _, it := range idx.order {
		n := idx.nodes[it]
		if n.rawVector == nil {
			n.computeRawVector(idx.words, idx.svdOpts.Epsilon)
		}
		cs = append(cs, n.rawVector)
		items = append(items, it)
	}
	projected := projectBatch(uNew, cs)
	for i, it := range items {
		n := idx.nodes[it]
		n.lsiVector = projected[i]
		n.lsiNorm = projected[i].Normalize(idx.svdOpts.Epsilon)
	}

	incrementalDuration := time.Since(start)
	idx.builtAtVersion = idx.version
	idx.lastBuild = &BuildStats{
		Sweeps:         0,
		Duration:       incrementalDuration,
		Documents:      len(idx.order),
		VocabularySize: idx.words.Size(),
		Incremental:    true,
	}
	metrics := idx.metrics
	idx.mu.Unlock()
	if metrics != nil {
		metrics.RecordOperation("add_item_incremental", float64(incrementalDuration.Microseconds())/1000.0)
	}
	return nil
}

// seedIncrementalLocked captures the thin basis right after a successful
// full BuildIndex, so later AddItemIncremental calls have something to
// update against. idx.mu must already be held.
func (idx *Index) seedIncrementalLocked(u *linalg.Matrix, s linalg.Vector) {
	if idx.incremental == nil {
		return
	}
	idx.incremental.u = u
	idx.incremental.s = s
	idx.incremental.vocabAtBuild = idx.words.Size()
	idx.incremental.activeVersion = idx.version
	idx.incremental.extraTokens = nil
}
