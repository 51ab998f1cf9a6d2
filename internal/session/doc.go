// Package session holds the ordered segments of one video and enforces their
// lifecycle:
//
//	Transcribed → Annotated → CandidatesFetched → Selected → Ready
//
// Annotate is one-shot. SetCandidates may run again for a different entity.
// SelectCandidate and SelectURL move a segment to Selected; AttachImage moves
// it to Ready, CaptureFailed leaves it Selected. Selecting a different source
// while Ready yields an OverrideEvent. Only Ready segments with an image
// appear in the RenderPlan.
package session
