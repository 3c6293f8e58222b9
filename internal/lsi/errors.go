// Package lsi implements the Latent Semantic Indexing engine: the word
// list, per-document content nodes, and the top-level index that owns
// build/search/classify/find_related/highest_relative_content.
package lsi

import "errors"

// ErrInvalidCutoff is returned by BuildIndex/Classify when the cutoff
// argument is not in the open interval (0, 1).
var ErrInvalidCutoff = errors.New("lsi: cutoff must be in (0, 1)")

// ErrNotIndexed is returned by HighestRankedStems when the requested
// document has no lsi_vector (it was never part of a successful build).
var ErrNotIndexed = errors.New("lsi: document is not indexed")

// ErrInvalidPayload is returned by Load when the JSON payload's type tag
// is missing or not "lsi", or its shape cannot be parsed.
var ErrInvalidPayload = errors.New("lsi: invalid persisted payload")
