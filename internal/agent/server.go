package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"vidlore/internal/logging"
	"vidlore/internal/pipeline"
	"vidlore/internal/ranking"
	"vidlore/internal/services"
	"vidlore/internal/session"
)

// Editor is the slice of the pipeline the tools drive.
type Editor interface {
	Session() *session.Session
	FetchCandidates(ctx context.Context, index, entityIndex int, sources ...string) ([]ranking.Candidate, error)
	Select(ctx context.Context, index, candidate int) (*session.OverrideEvent, error)
	SelectURL(ctx context.Context, index int, rawURL, title string) (*session.OverrideEvent, error)
	Capture(ctx context.Context, index int) error
	Render(ctx context.Context, outputPath string) (string, error)
}

var _ Editor = (*pipeline.Pipeline)(nil)

// Server registers the session tools on an MCP server.
type Server struct {
	editor Editor
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New builds the tool server for editor.
func New(editor Editor, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		editor: editor,
		logger: logging.NewComponentLogger(logger, "agent"),
		mcp:    server.NewMCPServer("vidlore", version, server.WithToolCapabilities(false)),
	}
	s.register()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the tools on stdin/stdout until EOF or a signal.
func (s *Server) ServeStdio() error {
	s.logger.Info("agent tools serving on stdio",
		logging.String(logging.FieldEventType, "agent_serve"),
		logging.Int("segment_count", s.segmentCount()),
	)
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	s.mcp.AddTool(mcp.NewTool("list_segments",
		mcp.WithDescription("List transcript segments with their entities, state, and current selection."),
		mcp.WithBoolean("with_entities_only", mcp.Description("Only list segments that have entities")),
	), s.listSegments)

	s.mcp.AddTool(mcp.NewTool("fetch_candidates",
		mcp.WithDescription("Rank knowledge sources for one entity of a segment."),
		mcp.WithNumber("segment", mcp.Required(), mcp.Description("Segment index")),
		mcp.WithNumber("entity", mcp.Description("Entity index within the segment (default 0)")),
		mcp.WithString("source", mcp.Description("Restrict to one provider"), mcp.Enum(ranking.SourceWikipedia, ranking.SourceNews)),
	), s.fetchCandidates)

	s.mcp.AddTool(mcp.NewTool("select_candidate",
		mcp.WithDescription("Select a ranked candidate for a segment and capture its page."),
		mcp.WithNumber("segment", mcp.Required(), mcp.Description("Segment index")),
		mcp.WithNumber("candidate", mcp.Required(), mcp.Description("Candidate index from fetch_candidates")),
	), s.selectCandidate)

	s.mcp.AddTool(mcp.NewTool("select_url",
		mcp.WithDescription("Select an arbitrary http(s) URL for a segment and capture it."),
		mcp.WithNumber("segment", mcp.Required(), mcp.Description("Segment index")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page to capture")),
		mcp.WithString("title", mcp.Description("Display title; derived from the URL when empty")),
	), s.selectURL)

	s.mcp.AddTool(mcp.NewTool("capture_segment",
		mcp.WithDescription("Retry the capture of a segment's current selection."),
		mcp.WithNumber("segment", mcp.Required(), mcp.Description("Segment index")),
	), s.captureSegment)

	s.mcp.AddTool(mcp.NewTool("render",
		mcp.WithDescription("Render every ready segment over the video and write the sources CSV."),
		mcp.WithString("output", mcp.Description("Output path; defaults to <output_dir>/<stem>.annotated<ext>")),
	), s.render)
}

type segmentView struct {
	Index    int            `json:"index"`
	Start    float64        `json:"start"`
	End      float64        `json:"end"`
	Text     string         `json:"text"`
	State    session.State  `json:"state"`
	Entities []string       `json:"entities,omitempty"`
	Selected *selectionView `json:"selected,omitempty"`
	Error    string         `json:"last_error,omitempty"`
}

type selectionView struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

type selectResultView struct {
	Segment    int            `json:"segment"`
	State      session.State  `json:"state"`
	Selected   *selectionView `json:"selected,omitempty"`
	Overridden *overrideView  `json:"overridden,omitempty"`
}

// overrideView is set when a selection replaced one already captured.
type overrideView struct {
	OldTitle string `json:"old_title"`
	NewTitle string `json:"new_title"`
}

type candidateView struct {
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Tag     string   `json:"tag"`
	Snippet string   `json:"snippet,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

func (s *Server) listSegments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.editor.Session()
	if sess == nil {
		return mcp.NewToolResultError("no analyzed session"), nil
	}
	entitiesOnly := req.GetBool("with_entities_only", false)
	views := make([]segmentView, 0, sess.Len())
	for _, seg := range sess.Segments() {
		if entitiesOnly && len(seg.Entities) == 0 {
			continue
		}
		view := segmentView{
			Index: seg.Index,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
			State: seg.State,
			Error: seg.LastError,
		}
		for _, e := range seg.Entities {
			view.Entities = append(view.Entities, e.Text)
		}
		if seg.Selected != nil {
			view.Selected = &selectionView{Title: seg.Selected.Title, URL: seg.Selected.URL, Tag: seg.Selected.Provenance.Tag()}
		}
		views = append(views, view)
	}
	return jsonResult(views)
}

func (s *Server) fetchCandidates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("segment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entityIndex := req.GetInt("entity", 0)
	var sources []string
	if source := req.GetString("source", ""); source != "" {
		sources = append(sources, source)
	}
	candidates, err := s.editor.FetchCandidates(ctx, index, entityIndex, sources...)
	if err != nil {
		return toolError("fetch candidates", err), nil
	}
	views := make([]candidateView, 0, len(candidates))
	for i, c := range candidates {
		views = append(views, candidateView{
			Index:   i,
			Title:   c.Title,
			URL:     c.URL,
			Tag:     c.Provenance.Tag(),
			Snippet: c.Snippet,
			Score:   c.Score,
		})
	}
	return jsonResult(views)
}

func (s *Server) selectCandidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("segment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	candidate, err := req.RequireInt("candidate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	event, err := s.editor.Select(ctx, index, candidate)
	if err != nil {
		return toolError("select candidate", err), nil
	}
	return s.selectionResult(index, event)
}

func (s *Server) selectURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("segment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	event, err := s.editor.SelectURL(ctx, index, rawURL, req.GetString("title", ""))
	if err != nil {
		return toolError("select url", err), nil
	}
	return s.selectionResult(index, event)
}

func (s *Server) captureSegment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("segment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.editor.Capture(ctx, index); err != nil {
		return toolError("capture", err), nil
	}
	return s.segmentResult(index)
}

func (s *Server) render(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.editor.Render(ctx, req.GetString("output", ""))
	if err != nil {
		return toolError("render", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rendered %s (sources: %s)", out, pipeline.SidecarPath(out))), nil
}

func (s *Server) segmentResult(index int) (*mcp.CallToolResult, error) {
	seg, err := s.editor.Session().Segment(index)
	if err != nil {
		return toolError("segment", err), nil
	}
	text := fmt.Sprintf("segment %d is %s", seg.Index, seg.State)
	if seg.Selected != nil {
		text += ": " + seg.Selected.DisplayTitle()
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) selectionResult(index int, event *session.OverrideEvent) (*mcp.CallToolResult, error) {
	seg, err := s.editor.Session().Segment(index)
	if err != nil {
		return toolError("segment", err), nil
	}
	view := selectResultView{Segment: seg.Index, State: seg.State}
	if seg.Selected != nil {
		view.Selected = &selectionView{Title: seg.Selected.Title, URL: seg.Selected.URL, Tag: seg.Selected.Provenance.Tag()}
	}
	if event != nil {
		view.Overridden = &overrideView{OldTitle: event.OldTitle, NewTitle: event.NewTitle}
	}
	return jsonResult(view)
}

func (s *Server) segmentCount() int {
	if sess := s.editor.Session(); sess != nil {
		return sess.Len()
	}
	return 0
}

// toolError reports err to the caller as a tool-level error.
func toolError(op string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s: %v", op, err)
	var transition *session.TransitionError
	switch {
	case errors.As(err, &transition):
		msg += " (segment state does not allow this)"
	case errors.Is(err, pipeline.ErrNoSession):
		msg += " (analysis has not finished)"
	case errors.Is(err, services.ErrCapture):
		msg += " (selection kept; retry with capture_segment)"
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
