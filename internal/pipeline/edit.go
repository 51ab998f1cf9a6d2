package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vidlore/internal/logging"
	"vidlore/internal/models"
	"vidlore/internal/ranking"
	"vidlore/internal/services"
	"vidlore/internal/session"
)

// FetchCandidates ranks knowledge sources for the entityIndex-th entity of a
// segment and stores them on the session. sources optionally restricts the
// providers queried ("wikipedia", "news"); none means all.
func (p *Pipeline) FetchCandidates(ctx context.Context, index, entityIndex int, sources ...string) ([]ranking.Candidate, error) {
	sess, id, err := p.annotatedSession()
	if err != nil {
		return nil, err
	}
	seg, err := sess.Segment(index)
	if err != nil {
		return nil, err
	}
	if entityIndex < 0 || entityIndex >= len(seg.Entities) {
		return nil, fmt.Errorf("%w: segment %d entity %d", ErrEntityNotFound, index, entityIndex)
	}
	chosen := seg.Entities[entityIndex]

	model, err := models.Acquire[*RankingModel](ctx, p.deps.Registry, models.Ranking)
	if err != nil {
		return nil, services.Wrap(services.ErrScorerUnavailable, "ranking", "load ranking model", "", err)
	}
	segCtx := services.WithSegment(services.WithSessionID(ctx, id), index)
	candidates := model.Ranker.WithSources(sources...).Rank(segCtx, seg.Text, chosen.Text, seg.Language)
	if err := sess.SetCandidates(index, chosen, candidates); err != nil {
		return nil, err
	}

	logging.WithContext(segCtx, p.currentLogger()).Info("candidates fetched",
		logging.String(logging.FieldEventType, "candidates_ready"),
		logging.String("entity", chosen.Text),
		logging.Int("candidate_count", len(candidates)),
	)
	p.emit(ctx, CandidatesReady{Segment: index, Entity: chosen, Candidates: candidates})
	return candidates, nil
}

// Select chooses the candidate-th ranked candidate for a segment and
// captures it. The returned event is non-nil when a Ready segment's source
// was replaced, even if the capture then fails. Capture failures leave the
// segment selected and are returned wrapped in services.ErrCapture.
func (p *Pipeline) Select(ctx context.Context, index, candidate int) (*session.OverrideEvent, error) {
	sess, _, err := p.annotatedSession()
	if err != nil {
		return nil, err
	}
	event, err := sess.SelectCandidate(index, candidate)
	if err != nil {
		return nil, err
	}
	return event, p.afterSelect(ctx, sess, index, event)
}

// SelectURL selects a manually supplied URL for a segment and captures it.
// The event follows the same rules as Select.
func (p *Pipeline) SelectURL(ctx context.Context, index int, rawURL, title string) (*session.OverrideEvent, error) {
	sess, _, err := p.annotatedSession()
	if err != nil {
		return nil, err
	}
	event, err := sess.SelectURL(index, rawURL, title)
	if err != nil {
		return nil, err
	}
	return event, p.afterSelect(ctx, sess, index, event)
}

// Capture retries the capture of a segment's current selection.
func (p *Pipeline) Capture(ctx context.Context, index int) error {
	sess, _, err := p.annotatedSession()
	if err != nil {
		return err
	}
	return p.capture(ctx, sess, index)
}

func (p *Pipeline) afterSelect(ctx context.Context, sess *session.Session, index int, event *session.OverrideEvent) error {
	logger := logging.WithContext(services.WithSegment(ctx, index), p.currentLogger())
	if event != nil {
		logger.Info("selection overridden",
			logging.String(logging.FieldEventType, "selection_override"),
			logging.Alert("override"),
			logging.String("previous_title", event.OldTitle),
			logging.String("selected_title", event.NewTitle),
		)
		p.emit(ctx, SelectionOverridden{Event: *event})
	}
	seg, err := sess.Segment(index)
	if err != nil {
		return err
	}
	if seg.State == session.StateReady {
		return nil
	}
	return p.capture(ctx, sess, index)
}

func (p *Pipeline) capture(ctx context.Context, sess *session.Session, index int) error {
	seg, err := sess.Segment(index)
	if err != nil {
		return err
	}
	if seg.Selected == nil {
		return fmt.Errorf("%w: segment %d has no selection", session.ErrInvalidTransition, index)
	}
	logger := logging.WithContext(services.WithSegment(ctx, index), p.currentLogger())

	path, err := p.deps.Capturer.Capture(ctx, index, seg.Selected.URL)
	if err != nil {
		if markErr := sess.CaptureFailed(index, err); markErr != nil {
			return errors.Join(err, markErr)
		}
		logging.WarnWithContext(logger, "capture failed; segment stays selected", "capture_failed",
			logging.Error(err),
			logging.Alert("capture_retry"),
			logging.String("selected_url", seg.Selected.URL),
			logging.String(logging.FieldErrorHint, "retry the capture or select another source"),
			logging.String(logging.FieldImpact, "segment is skipped at render until captured"),
		)
		p.emit(ctx, CaptureFailed{Segment: index, Err: err})
		return err
	}
	if err := sess.AttachImage(index, path); err != nil {
		return err
	}
	logger.Info("segment ready",
		logging.String(logging.FieldEventType, "segment_ready"),
		logging.String("selected_title", seg.Selected.Title),
		logging.String("selected_url", seg.Selected.URL),
	)
	p.emit(ctx, SegmentCaptured{Segment: index, ImagePath: path})
	return nil
}

// AutoSelect picks, for every annotated segment with entities, the top
// candidate of its first entity. Provider, scorer, and capture failures skip
// the segment; any other failure stops the pass.
func (p *Pipeline) AutoSelect(ctx context.Context) error {
	sess, _, err := p.annotatedSession()
	if err != nil {
		return err
	}
	logger := p.currentLogger()
	selected := 0
	for _, seg := range sess.Segments() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seg.State != session.StateAnnotated || len(seg.Entities) == 0 {
			continue
		}
		candidates, err := p.FetchCandidates(ctx, seg.Index, 0)
		if err != nil {
			if services.IsFatal(err) {
				return err
			}
			skip(logger, seg.Index, err.Error())
			continue
		}
		if len(candidates) == 0 {
			skip(logger, seg.Index, "no candidates")
			continue
		}
		if _, err := p.Select(ctx, seg.Index, 0); err != nil {
			if services.IsFatal(err) {
				return err
			}
			skip(logger, seg.Index, err.Error())
			continue
		}
		attrs := append([]logging.Attr{
			logging.Int(logging.FieldSegment, seg.Index),
			logging.String("selected_title", candidates[0].Title),
		}, logging.DecisionAttrs("auto_select", "selected", "top ranked candidate")...)
		logger.Info("segment selected automatically", logging.Args(attrs...)...)
		selected++
	}
	logger.Info("automatic selection complete",
		logging.String(logging.FieldEventType, "auto_select_complete"),
		logging.Int("segment_count", sess.Len()),
		logging.Int("overlay_count", selected),
	)
	return nil
}

func skip(logger *slog.Logger, index int, reason string) {
	attrs := append([]logging.Attr{logging.Int(logging.FieldSegment, index)},
		logging.DecisionAttrs("auto_select", "skipped", reason)...)
	logger.Debug("segment skipped during automatic selection", logging.Args(attrs...)...)
}

func (p *Pipeline) annotatedSession() (*session.Session, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil || p.sessionID == "" {
		return nil, "", ErrNoSession
	}
	if p.completed < StageAnnotation {
		return nil, "", fmt.Errorf("%w: annotation has not completed", ErrStageOrder)
	}
	return p.sess, p.sessionID, nil
}
