// Package mcpserver exposes the practice engine's analysis tools to MCP
// clients such as coding assistants or tutoring agents.
//
// Tools:
//
//	score_phrase         similarity score and word-level breakdown
//	detect_interference  interfering-language detection for a transcript
//	get_progress         the learner's persisted progress and level
//	list_modes           the exercise modes a session can run
package mcpserver

import (
	"context"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/parla/internal/interference"
	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/scoring"
	"github.com/MrWong99/parla/internal/session"
)

// ProgressReader loads the learner's record. [*progress.Service] implements it.
type ProgressReader interface {
	Load(ctx context.Context) (progress.UserProgress, error)
	Ledger() *progress.Ledger
}

var _ ProgressReader = (*progress.Service)(nil)

// Config wires the tool handlers.
type Config struct {
	Version  string
	Progress ProgressReader
	Modes    []session.Mode
	Analyzer *scoring.Analyzer
	Detector *interference.Detector
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// ScoreInput is the argument of score_phrase.
type ScoreInput struct {
	Transcript string `json:"transcript" jsonschema:"what the learner said"`
	Target     string `json:"target" jsonschema:"the phrase the learner was asked to say"`
}

// DetectInput is the argument of detect_interference.
type DetectInput struct {
	Transcript string `json:"transcript" jsonschema:"what the learner said"`
}

// ProgressOutput is the result of get_progress.
type ProgressOutput struct {
	Progress progress.UserProgress `json:"progress"`
	Status   progress.LevelStatus  `json:"status"`
	Today    progress.DayRecord    `json:"today"`
}

// ModesOutput is the result of list_modes.
type ModesOutput struct {
	Modes []session.Info `json:"modes"`
}

type handlers struct {
	cfg Config
}

// New creates an MCP server with every tool registered.
func New(cfg Config) *mcpsdk.Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = scoring.NewAnalyzer()
	}
	if cfg.Detector == nil {
		cfg.Detector = interference.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Modes == nil {
		cfg.Modes = session.Modes()
	}

	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "parla", Version: cfg.Version}, nil)
	h := &handlers{cfg: cfg}

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "score_phrase",
		Description: "Score how closely a spoken transcript matches a target phrase (0-100) and list missing, extra and near-miss words.",
	}, h.scorePhrase)
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "detect_interference",
		Description: "Detect words from the learner's native language in a transcript and grade the interference.",
	}, h.detectInterference)
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "list_modes",
		Description: "List the exercise modes with their prompt targets and response windows.",
	}, h.listModes)
	if cfg.Progress != nil {
		mcpsdk.AddTool(s, &mcpsdk.Tool{
			Name:        "get_progress",
			Description: "Return the learner's streak, totals, level and today's activity.",
		}, h.getProgress)
	}
	return s
}

// Handler serves s over the streamable HTTP transport.
func Handler(s *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return s }, nil)
}

func (h *handlers) record(ctx context.Context, tool string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		observe.LoggerFrom(ctx, h.cfg.Logger).Warn("mcp tool failed", "tool", tool, "err", err)
	}
	h.cfg.Metrics.RecordToolCall(ctx, tool, status)
}

func (h *handlers) scorePhrase(ctx context.Context, _ *mcpsdk.CallToolRequest, in ScoreInput) (*mcpsdk.CallToolResult, scoring.Analysis, error) {
	res := h.cfg.Analyzer.Analyze(in.Transcript, in.Target)
	h.record(ctx, "score_phrase", nil)
	return nil, res, nil
}

func (h *handlers) detectInterference(ctx context.Context, _ *mcpsdk.CallToolRequest, in DetectInput) (*mcpsdk.CallToolResult, interference.Result, error) {
	res := h.cfg.Detector.Detect(in.Transcript)
	h.record(ctx, "detect_interference", nil)
	return nil, res, nil
}

func (h *handlers) listModes(ctx context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, ModesOutput, error) {
	h.record(ctx, "list_modes", nil)
	return nil, ModesOutput{Modes: session.Describe(h.cfg.Modes)}, nil
}

func (h *handlers) getProgress(ctx context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, ProgressOutput, error) {
	p, err := h.cfg.Progress.Load(ctx)
	h.record(ctx, "get_progress", err)
	if err != nil {
		return nil, ProgressOutput{}, err
	}
	today, ok := progress.TodayRecord(p, h.cfg.Progress.Ledger().CurrentDate())
	if !ok {
		today = progress.DayRecord{Date: h.cfg.Progress.Ledger().CurrentDate(), ModesUsed: []string{}}
	}
	return nil, ProgressOutput{Progress: p, Status: progress.Status(p), Today: today}, nil
}
