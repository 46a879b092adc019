package structured

import (
	"log/slog"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// ProjectOutcome describes how DecodeProject arrived at its project.
type ProjectOutcome struct {
	Strategy   string         `json:"strategy,omitempty"`
	Valid      bool           `json:"valid"`
	Violations []Violation    `json:"violations,omitempty"`
	Sanitize   SanitizeReport `json:"sanitize"`
}

// PatchOutcome describes how DecodePatch arrived at its patch.
type PatchOutcome struct {
	Parsed     bool        `json:"parsed"`
	Strategy   string      `json:"strategy,omitempty"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	Dropped    []Violation `json:"dropped,omitempty"`
}

// Decoder chains parse, validate and sanitize for model output.
type Decoder struct {
	parser *Parser
	logger *slog.Logger
}

func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{parser: NewParser(logger), logger: logger}
}

// DecodeProject returns the first strategy's candidate that validates. When
// none does, the first parsed candidate is sanitized; when nothing parses at
// all the fallback skeleton is used.
func (d *Decoder) DecodeProject(raw string, req types.GenerationRequest) (types.Project, ProjectOutcome) {
	var (
		out   ProjectOutcome
		first Candidate
	)
	for r := range d.parser.All(raw) {
		rep := Validate(r.Candidate, ShapeProject)
		if rep.Valid {
			p, srep := SanitizeProject(r.Candidate, req)
			return p, ProjectOutcome{Strategy: r.Strategy, Valid: true, Sanitize: srep}
		}
		if first == nil {
			first = r.Candidate
			out.Strategy = r.Strategy
			out.Violations = rep.Violations
		}
	}

	if first == nil {
		parseStrategyTotal.WithLabelValues("none").Inc()
		d.logger.Warn("model output not parseable, using fallback project", "plugin", req.PluginName, "bytes", len(raw))
		sanitizeFallbackTotal.Inc()
		out.Sanitize.UsedFallback = true
		return Fallback(req), out
	}
	p, srep := SanitizeProject(first, req)
	out.Sanitize = srep
	d.logger.Info("sanitized invalid project output",
		"plugin", req.PluginName,
		"strategy", out.Strategy,
		"violations", len(out.Violations),
		"dropped_files", len(srep.DroppedFiles),
		"fallback", srep.UsedFallback,
	)
	return p, out
}

// DecodePatch mirrors DecodeProject for fix patches. An unparseable text
// yields an empty patch with Parsed false.
func (d *Decoder) DecodePatch(raw string) (types.Patch, PatchOutcome) {
	var (
		out   PatchOutcome
		first Candidate
	)
	for r := range d.parser.All(raw) {
		rep := Validate(r.Candidate, ShapePatch)
		if rep.Valid {
			p, prep := SanitizePatch(r.Candidate)
			return p, PatchOutcome{Parsed: true, Strategy: r.Strategy, Valid: true, Dropped: prep.Dropped}
		}
		if first == nil {
			first = r.Candidate
			out.Strategy = r.Strategy
			out.Violations = rep.Violations
		}
	}
	if first == nil {
		parseStrategyTotal.WithLabelValues("none").Inc()
		return types.Patch{}, out
	}
	out.Parsed = true
	p, prep := SanitizePatch(first)
	out.Dropped = prep.Dropped
	if len(prep.Dropped) > 0 {
		d.logger.Info("dropped invalid patch operations", "strategy", out.Strategy, "dropped", len(prep.Dropped), "kept", len(p.Operations))
	}
	return p, out
}
