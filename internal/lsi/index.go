package lsi

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexs-lsi/lsi-core/internal/linalg"
	"github.com/nexs-lsi/lsi-core/internal/logger"
	"github.com/nexs-lsi/lsi-core/internal/textnorm"
)

const (
	// DefaultBuildCutoff is the cutoff build_index uses when the caller
	// does not specify one.
	DefaultBuildCutoff = 0.75
	// DefaultClassifyCutoff is the cutoff classify uses when the caller
	// does not specify one.
	DefaultClassifyCutoff = 0.30
)

// TokenizeFunc maps raw text to a multiset of stem tokens.
type TokenizeFunc func(text string) map[string]int

// FetchBody resolves an opaque item handle to the text it names. When nil,
// the item handle itself is treated as the text.
type FetchBody func(item string) (string, error)

// ProximityResult pairs an item with its similarity score to a query,
// descending by Score.
type ProximityResult struct {
	Item  string
	Score float64
}

// SpectrumEntry describes one singular value of the last successful build.
type SpectrumEntry struct {
	Dimension       int
	Value           float64
	Share           float64
	CumulativeShare float64
}

// BuildStats describes the last successful BuildIndex call, for
// telemetry/diagnostics only; it carries no invariant of its own.
type BuildStats struct {
	BuildID        string
	Sweeps         int
	Duration       time.Duration
	Documents      int
	VocabularySize int
	Incremental    bool
}

// Index is the top-level LSI engine: it owns the word list, every
// ContentNode, and the version counters that drive the rebuild policy.
// All public methods take an exclusive-access contract for the duration
// of one call, except across caller-supplied FetchBody invocations.
type Index struct {
	mu sync.Mutex

	words *WordList
	order []string
	nodes map[string]*ContentNode

	autoRebuild bool
	tokenizer   TokenizeFunc
	svdOpts     linalg.SVDOptions

	version        uint64
	builtAtVersion uint64

	spectrum  []SpectrumEntry
	lastBuild *BuildStats

	incremental *incrementalState

	metrics *logger.PerformanceMetrics
}

// Option configures an Index at construction time.
type Option func(*Index)

// WithTokenizer overrides the default tokenizer (textnorm.Tokenize).
func WithTokenizer(fn TokenizeFunc) Option {
	return func(idx *Index) { idx.tokenizer = fn }
}

// WithAutoRebuild controls whether add_item/remove_item immediately
// trigger build_index. Default true.
func WithAutoRebuild(enabled bool) Option {
	return func(idx *Index) { idx.autoRebuild = enabled }
}

// WithSVDOptions overrides the Jacobi SVD's sweep budget and numeric
// guards. Default linalg.DefaultSVDOptions().
func WithSVDOptions(opts linalg.SVDOptions) Option {
	return func(idx *Index) { idx.svdOpts = opts }
}

// WithIncremental enables Brand's incremental thin-SVD update path,
// bounded by maxRank, torn down and replaced by a full rebuild once the
// vocabulary grows beyond vocabGrowthThreshold over its size at the last
// full build.
func WithIncremental(maxRank int, vocabGrowthThreshold float64) Option {
	return func(idx *Index) {
		idx.incremental = &incrementalState{
			maxRank:              maxRank,
			vocabGrowthThreshold: vocabGrowthThreshold,
		}
	}
}

// WithPerformanceMetrics attaches a performance tracker that records the
// wall-clock duration of every BuildIndex call that runs the decomposition
// (as "build_index") and every incremental update (as "add_item_incremental"),
// queryable later through Index.PerformanceDashboard. Nil by default —
// an index built without this option records no telemetry.
func WithPerformanceMetrics(pm *logger.PerformanceMetrics) Option {
	return func(idx *Index) { idx.metrics = pm }
}

// NewIndex returns an empty index with the default tokenizer, SVD
// options, and auto-rebuild enabled.
func NewIndex(opts ...Option) *Index {
	idx := &Index{
		words:       NewWordList(),
		nodes:       make(map[string]*ContentNode),
		autoRebuild: true,
		tokenizer:   textnorm.Tokenize,
		svdOpts:     linalg.DefaultSVDOptions(),
	}
	for _, o := range opts {
		o(idx)
	}
	return idx
}

func resolveText(item string, fetchBody FetchBody) (string, error) {
	if fetchBody == nil {
		return item, nil
	}
	return fetchBody(item)
}

func cloneTokens(tokens map[string]int) map[string]int {
	out := make(map[string]int, len(tokens))
	for k, v := range tokens {
		out[k] = v
	}
	return out
}

// needsRebuildLocked evaluates the state-machine invariant; callers must
// already hold idx.mu.
func (idx *Index) needsRebuildLocked() bool {
	return len(idx.order) > 1 && idx.version != idx.builtAtVersion
}

// NeedsRebuild reports whether the index is in the Dirty state.
func (idx *Index) NeedsRebuild() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.needsRebuildLocked()
}

// AddItem tokenizes the text named by item (via fetchBody, or item itself
// when fetchBody is nil) and stores it as a ContentNode, appending any
// categories given. Re-adding an existing item replaces its tokens.
// Bumps version; if auto-rebuild is enabled, immediately calls
// BuildIndex(DefaultBuildCutoff).
func (idx *Index) AddItem(item string, fetchBody FetchBody, categories ...string) error {
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
	auto := idx.autoRebuild
	idx.mu.Unlock()

	if auto {
		return idx.BuildIndex(DefaultBuildCutoff)
	}
	return nil
}

// RemoveItem deletes item from the index. Idempotent: a no-op if item is
// absent. Bumps version only on an actual removal.
func (idx *Index) RemoveItem(item string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.nodes[item]; !ok {
		return
	}
	delete(idx.nodes, item)
	for i, it := range idx.order {
		if it == item {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	idx.version++
}

// Items returns a snapshot of item handles in insertion order.
func (idx *Index) Items() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// CategoriesFor returns a live, mutable pointer to item's category list,
// or (nil, false) if item is unknown. Mutating the slice through this
// pointer never bumps version.
func (idx *Index) CategoriesFor(item string) (*[]string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	node, ok := idx.nodes[item]
	if !ok {
		return nil, false
	}
	return node.Categories(), true
}

// BuildIndex rebuilds the word list and term-document decomposition when
// needs_rebuild is true. cutoff must be in (0, 1).
func (idx *Index) BuildIndex(cutoff float64) error {
	if cutoff <= 0 || cutoff >= 1 {
		return ErrInvalidCutoff
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.order) == 0 {
		return nil
	}
	if len(idx.order) == 1 {
		idx.buildTrivialLocked()
		return nil
	}
	if !idx.needsRebuildLocked() {
		return nil
	}

	start := time.Now()
	buildID := uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.BuildIDKey, buildID)
	ctx = context.WithValue(ctx, logger.OperationKey, "build_index")

	words := NewWordList()
	for _, item := range idx.order {
		for token := range idx.nodes[item].tokens {
			words.Add(token)
		}
	}
	for _, item := range idx.order {
		node := idx.nodes[item]
		node.computeRawVector(words, idx.svdOpts.Epsilon)
		node.clearLSI()
	}

	n := words.Size()
	d := len(idx.order)
	a := linalg.NewMatrix(n, d)
	for j, item := range idx.order {
		_ = a.SetColumn(j, idx.nodes[item].rawVector)
	}

	res := linalg.JacobiSVD(a, idx.svdOpts)

	sDesc := append(linalg.Vector(nil), res.S...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sDesc)))

	sTrunc := res.S.Clone()
	if len(sDesc) > 0 {
		k := int(math.Round(float64(len(sDesc))*cutoff)) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(sDesc) {
			k = len(sDesc) - 1
		}
		threshold := sDesc[k]

		for i := range sTrunc {
			if sTrunc[i] < threshold {
				sTrunc[i] = 0
			}
		}
	}

	diag := linalg.DiagonalMatrix(sTrunc)
	projected := mulMatrices(mulMatrices(res.U, diag), res.V.Transpose())

	for j, item := range idx.order {
		col := projected.Column(j)
		node := idx.nodes[item]
		node.lsiVector = col
		node.lsiNorm = col.Normalize(idx.svdOpts.Epsilon)
	}

	idx.words = words
	if len(sDesc) > 0 {
		idx.spectrum = buildSpectrum(sDesc)
	} else {
		idx.spectrum = nil
	}
	idx.builtAtVersion = idx.version
	idx.seedIncrementalLocked(res.U, sTrunc)
	buildDuration := time.Since(start)
	idx.lastBuild = &BuildStats{
		BuildID:        buildID,
		Sweeps:         res.SweepsRun,
		Duration:       buildDuration,
		Documents:      d,
		VocabularySize: n,
		Incremental:    false,
	}
	if idx.metrics != nil {
		idx.metrics.RecordOperation("build_index", float64(buildDuration.Microseconds())/1000.0)
	}

	logger.InfoContext(ctx, "lsi index built",
		"documents", d, "vocabulary", n, "sweeps", res.SweepsRun, "incremental", false)
	if res.SweepsRun >= idx.svdOpts.MaxSweeps {
		logger.WarnContext(ctx, "jacobi svd did not converge within sweep budget",
			"max_sweeps", idx.svdOpts.MaxSweeps)
	}

	return nil
}

// buildTrivialLocked handles the single-item case: a raw vector is
// computed so search/classify have something to compare against, but no
// SVD runs — a single document is untypable by the decomposition.
// idx.mu must already be held.
func (idx *Index) buildTrivialLocked() {
	item := idx.order[0]
	node := idx.nodes[item]

	words := NewWordList()
	for token := range node.tokens {
		words.Add(token)
	}
	node.computeRawVector(words, idx.svdOpts.Epsilon)
	node.clearLSI()

	idx.words = words
	idx.spectrum = nil
	idx.builtAtVersion = idx.version
}

func mulMatrices(a, b *linalg.Matrix) *linalg.Matrix {
	out, err := a.Mul(b)
	if err != nil {
		// Shapes here are derived from the SVD's own U/V/S triple and are
		// always compatible; a mismatch means a bug in this package.
		panic("lsi: internal shape invariant violated: " + err.Error())
	}
	return out
}

func buildSpectrum(sortedDesc linalg.Vector) []SpectrumEntry {
	var total float64
	for _, v := range sortedDesc {
		total += v
	}
	entries := make([]SpectrumEntry, len(sortedDesc))
	var cumulative float64
	for i, v := range sortedDesc {
		share := 0.0
		if total > 0 {
			share = v / total
		}
		cumulative += share
		entries[i] = SpectrumEntry{
			Dimension:       i,
			Value:           v,
			Share:           share,
			CumulativeShare: cumulative,
		}
	}
	return entries
}

// SingularValueSpectrum returns the per-dimension spectrum of the last
// successful build, or (nil, false) if the index has never been built.
func (idx *Index) SingularValueSpectrum() ([]SpectrumEntry, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.spectrum == nil {
		return nil, false
	}
	out := make([]SpectrumEntry, len(idx.spectrum))
	copy(out, idx.spectrum)
	return out, true
}

// LastBuildStats returns telemetry for the last successful build, or
// (zero-value, false) if the index has never been built.
func (idx *Index) LastBuildStats() (BuildStats, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.lastBuild == nil {
		return BuildStats{}, false
	}
	return *idx.lastBuild, true
}

// PerformanceDashboard summarizes build_index/add_item_incremental timings
// recorded over period ("all", "last_hour", "last_24h", "last_7_days",
// "last_30_days"), or (nil, false) if the index was constructed without
// WithPerformanceMetrics.
func (idx *Index) PerformanceDashboard(period string) (*logger.PerformanceDashboard, bool) {
	idx.mu.Lock()
	pm := idx.metrics
	idx.mu.Unlock()

	if pm == nil {
		return nil, false
	}
	return pm.GetDashboard(period), true
}

// RecentBuildLogs returns log entries captured by the process-wide log
// buffer (see logger.Init's Config.BufferSize) matching filter, newest
// first. Returns nil if no buffer is configured.
func (idx *Index) RecentBuildLogs(filter logger.LogFilter) []logger.LogEntry {
	buf := logger.GetLogBuffer()
	if buf == nil {
		return nil
	}
	return buf.Query(filter)
}

// proximity is the shared engine behind ProximityArrayForContent and
// ProximityNormsForContent. It releases the lock across the optional
// fetchBody call and the pure tokenization/vectorization that follows it.
func (idx *Index) proximity(doc string, fetchBody FetchBody, useNorm bool) []ProximityResult {
	idx.mu.Lock()
	if idx.needsRebuildLocked() {
		idx.mu.Unlock()
		return nil
	}

	var queryVec linalg.Vector
	if node, ok := idx.nodes[doc]; ok {
		queryVec = searchVectorOf(node, useNorm)
		idx.mu.Unlock()
	} else {
		words := idx.words
		epsilon := idx.svdOpts.Epsilon
		idx.mu.Unlock()

		text, err := resolveText(doc, fetchBody)
		if err != nil {
			return nil
		}
		tmp := NewContentNode(idx.tokenizer(text))
		tmp.computeRawVector(words, epsilon)
		queryVec = searchVectorOf(tmp, useNorm)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.needsRebuildLocked() {
		return nil
	}

	results := make([]ProximityResult, 0, len(idx.order))
	for _, item := range idx.order {
		candidate := searchVectorOf(idx.nodes[item], useNorm)
		score, err := queryVec.Dot(candidate)
		if err != nil {
			continue
		}
		results = append(results, ProximityResult{Item: item, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func searchVectorOf(node *ContentNode, useNorm bool) linalg.Vector {
	if useNorm {
		return node.SearchNorm()
	}
	return node.SearchVector()
}

// ProximityArrayForContent returns (item, score) pairs sorted descending
// by unnormalized similarity to doc. Empty if the index needs a rebuild.
func (idx *Index) ProximityArrayForContent(doc string, fetchBody FetchBody) []ProximityResult {
	return idx.proximity(doc, fetchBody, false)
}

// ProximityNormsForContent is ProximityArrayForContent with cosine
// (normalized) similarity.
func (idx *Index) ProximityNormsForContent(doc string, fetchBody FetchBody) []ProximityResult {
	return idx.proximity(doc, fetchBody, true)
}

// Search returns the top maxNearest items by cosine similarity to query.
// Empty if the index needs a rebuild. maxNearest <= 0 defaults to 3.
func (idx *Index) Search(query string, maxNearest int) []ProximityResult {
	if maxNearest <= 0 {
		maxNearest = 3
	}
	results := idx.ProximityNormsForContent(query, nil)
	if len(results) > maxNearest {
		results = results[:maxNearest]
	}
	return results
}

// FindRelated returns the top maxNearest items by unnormalized similarity
// to doc, with doc itself excluded. maxNearest <= 0 defaults to 3.
func (idx *Index) FindRelated(doc string, maxNearest int, fetchBody FetchBody) []ProximityResult {
	if maxNearest <= 0 {
		maxNearest = 3
	}
	results := idx.ProximityArrayForContent(doc, fetchBody)
	filtered := make([]ProximityResult, 0, len(results))
	for _, r := range results {
		if r.Item != doc {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > maxNearest {
		filtered = filtered[:maxNearest]
	}
	return filtered
}

// categoryVote is the neighborhood-vote tally behind Classify and
// ClassifyWithConfidence: it takes the top-C proximity-array entries (C
// = round(|items| · cutoff), clamped to at least one) and sums each
// entry's score into every one of its categories' tallies.
func (idx *Index) categoryVote(doc string, cutoff float64, fetchBody FetchBody) (winner string, winnerTally, sumTally float64, ok bool) {
	results := idx.ProximityArrayForContent(doc, fetchBody)
	if len(results) == 0 {
		return "", 0, 0, false
	}

	itemCount := len(idx.Items())
	c := int(math.Round(float64(itemCount) * cutoff))
	if c < 1 {
		c = 1
	}
	if c > len(results) {
		c = len(results)
	}

	tally := make(map[string]float64)
	var order []string
	for _, r := range results[:c] {
		node, known := idx.lookupNode(r.Item)
		if !known {
			continue
		}
		for _, cat := range *node.Categories() {
			if _, seen := tally[cat]; !seen {
				order = append(order, cat)
			}
			tally[cat] += r.Score
		}
	}
	if len(order) == 0 {
		return "", 0, 0, false
	}

	var sum float64
	for _, v := range tally {
		sum += v
	}

	winner = order[0]
	best := tally[winner]
	for _, cat := range order[1:] {
		if tally[cat] > best {
			best = tally[cat]
			winner = cat
		}
	}
	return winner, best, sum, true
}

// Classify returns the category with the highest neighborhood-vote tally
// for doc, or ("", false, nil) if no category could be determined.
// cutoff must be in (0, 1).
func (idx *Index) Classify(doc string, cutoff float64, fetchBody FetchBody) (string, bool, error) {
	if cutoff <= 0 || cutoff >= 1 {
		return "", false, ErrInvalidCutoff
	}
	winner, _, _, ok := idx.categoryVote(doc, cutoff, fetchBody)
	return winner, ok, nil
}

// ClassifyWithConfidence is Classify plus a confidence score in [0, 1]:
// the winning category's tally divided by the sum of all tallies. If
// every tally sums to zero, returns ("", 0, false, nil).
func (idx *Index) ClassifyWithConfidence(doc string, cutoff float64, fetchBody FetchBody) (string, float64, bool, error) {
	if cutoff <= 0 || cutoff >= 1 {
		return "", 0, false, ErrInvalidCutoff
	}
	winner, best, sum, ok := idx.categoryVote(doc, cutoff, fetchBody)
	if !ok || sum == 0 {
		return "", 0, false, nil
	}
	return winner, best / sum, true, nil
}

func (idx *Index) lookupNode(item string) (*ContentNode, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	node, ok := idx.nodes[item]
	return node, ok
}

// HighestRelativeContent returns the maxChunks items with the greatest
// total unnormalized similarity to every other item — a crude
// "most central" ranking. maxChunks <= 0 defaults to 10.
func (idx *Index) HighestRelativeContent(maxChunks int) []ProximityResult {
	if maxChunks <= 0 {
		maxChunks = 10
	}

	idx.mu.Lock()
	if idx.needsRebuildLocked() {
		idx.mu.Unlock()
		return nil
	}

	results := make([]ProximityResult, 0, len(idx.order))
	for _, a := range idx.order {
		var total float64
		av := searchVectorOf(idx.nodes[a], false)
		for _, b := range idx.order {
			if a == b {
				continue
			}
			bv := searchVectorOf(idx.nodes[b], false)
			if score, err := av.Dot(bv); err == nil {
				total += score
			}
		}
		results = append(results, ProximityResult{Item: a, Score: total})
	}
	idx.mu.Unlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > maxChunks {
		results = results[:maxChunks]
	}
	return results
}

// HighestRankedStems returns the count tokens whose lsi_vector component
// is largest for doc. doc must be an indexed item with a populated
// lsi_vector, else ErrNotIndexed.
func (idx *Index) HighestRankedStems(doc string, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	node, ok := idx.nodes[doc]
	if !ok || node.LSIVector() == nil {
		return nil, ErrNotIndexed
	}
	return node.topStems(idx.words, count), nil
}
