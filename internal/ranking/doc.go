// Package ranking retrieves and orders knowledge sources for an entity.
//
// A Ranker queries every Provider concurrently, once per query (the entity
// plus any triggered expansion), each call under its own timeout. Hits are
// concatenated in provider order, then scored against the segment text by a
// Scorer and sorted. Without a working scorer the provider order is kept.
// Either way the list is capped (eight by default) and Rank never fails.
//
// Provenance is structured: Candidate.DisplayTitle renders the "[EN Wiki]"
// style prefix for humans and nothing reads it back.
package ranking
