package lsi

import (
	"encoding/json"
	"sort"
)

// payloadType is the only accepted "type" tag in a persisted blob.
const payloadType = "lsi"

// persistedItem mirrors one entry of the "items" object in the JSON
// contract: the token multiset and category list, keyed by item handle.
type persistedItem struct {
	WordHash   map[string]int `json:"word_hash"`
	Categories []string       `json:"categories"`
}

// persistedIndex mirrors the full JSON contract. Only source data is
// serialized; raw/lsi vectors are recomputed by BuildIndex on load.
type persistedIndex struct {
	Version     int                      `json:"version"`
	Type        string                   `json:"type"`
	AutoRebuild bool                     `json:"auto_rebuild"`
	Items       map[string]persistedItem `json:"items"`
}

// Save serializes the index's source data (token multisets + categories)
// to JSON. Computed vectors are never stored; Load recomputes them via
// BuildIndex.
func (idx *Index) Save() ([]byte, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	payload := persistedIndex{
		Version:     1,
		Type:        payloadType,
		AutoRebuild: idx.autoRebuild,
		Items:       make(map[string]persistedItem, len(idx.order)),
	}
	for _, item := range idx.order {
		node := idx.nodes[item]
		payload.Items[item] = persistedItem{
			WordHash:   cloneTokens(node.tokens),
			Categories: append([]string(nil), *node.Categories()...),
		}
	}
	return json.Marshal(payload)
}

// Load returns a new index holding the items encoded in data, rejecting
// any payload whose type tag is not "lsi", after invoking BuildIndex once
// using DefaultBuildCutoff.
func Load(data []byte, opts ...Option) (*Index, error) {
	var payload persistedIndex
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	if payload.Type != payloadType {
		return nil, ErrInvalidPayload
	}

	idx := NewIndex(opts...)

	// Preserve a deterministic insertion order across runs by sorting
	// item keys, since Go map iteration order is randomized and the
	// persisted format does not itself carry an order.
	keys := make([]string, 0, len(payload.Items))
	for k := range payload.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		item := payload.Items[key]
		node := NewContentNode(item.WordHash)
		*node.Categories() = append([]string(nil), item.Categories...)
		idx.nodes[key] = node
		idx.order = append(idx.order, key)
	}
	idx.version = uint64(len(idx.order))

	idx.autoRebuild = payload.AutoRebuild
	if err := idx.BuildIndex(DefaultBuildCutoff); err != nil {
		return nil, err
	}
	return idx, nil
}
