// Package textutil provides Unicode-aware tokenization and term-frequency
// fingerprints with optional TF-IDF weighting and cosine similarity.
//
// The lexical candidate scorer builds on Fingerprint and Corpus when no
// embedding service is available.
package textutil
