// Package news finds recent coverage of an entity by querying the
// DuckDuckGo HTML endpoint with "<entity> news" and scraping the result
// list. Hits carry "News" provenance.
package news
