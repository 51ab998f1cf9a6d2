// Package capture turns a selected source URL into an overlay image by
// requesting a rendered screenshot from a thum.io-style service
// ("<endpoint><url>") and storing it as seg_<index>.png.
//
// An optional cache keyed by URL lets repeated selections reuse an earlier
// capture without another request. Every failure wraps services.ErrCapture;
// callers keep the segment selected and may retry.
package capture
