// Package entity turns a transcript segment into a short, deduplicated list of
// labeled entities.
//
// Two extractors feed the Resolver: an LLM-backed zero-shot tagger (labels
// such as PERSON, SOCIAL_GROUP, CONCEPT) and a part-of-speech noun-phrase
// chunker. Configurable synthetic rules add inferred entities, for example
// "Demographics of India" when a percentage and a demographic group appear
// together. The Resolver keeps longer phrases and drops anything they contain.
package entity
