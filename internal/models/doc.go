// Package models owns the heavyweight collaborators the pipeline loads on
// demand: the entity extraction model and the ranking (embedding) model.
//
// A Registry loads a model lazily on Acquire and keeps at most one model
// resident. Acquiring a different model closes the resident one first, and
// Release lets the pipeline drop a model at a checkpoint. The registry is
// passed explicitly to the orchestrator; there is no process-wide state.
package models
