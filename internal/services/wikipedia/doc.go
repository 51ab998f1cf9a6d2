// Package wikipedia searches the MediaWiki full-text search API of a
// language edition and returns ranking hits with "<LANG> Wiki" provenance.
//
// Requests are throttled with a token-bucket limiter and successful result
// pages are memoized per (language, query) for the configured TTL.
package wikipedia
