package structured

import (
	"iter"
	"log/slog"
	"strings"
)

// Result is a successfully parsed candidate and the strategy that produced it.
type Result struct {
	Candidate Candidate
	Strategy  string
}

type namedStrategy struct {
	name string
	fn   StrategyFunc
}

func defaultStrategies() []namedStrategy {
	return []namedStrategy{
		{StrategyDirect, ParseDirect},
		{StrategyFence, ParseFenced},
		{StrategyGreedyBrace, ParseGreedyBrace},
		{StrategyBalancedBrace, ParseBalancedBrace},
		{StrategySyntaxRepair, ParseSyntaxRepair},
		{StrategyEscapeRepair, ParseEscapeRepair},
	}
}

// Parser runs the recovery strategies in fixed precedence order.
type Parser struct {
	strategies []namedStrategy
	logger     *slog.Logger
}

// NewParser builds the default cascade. A nil logger logs to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{strategies: defaultStrategies(), logger: logger}
}

func (p *Parser) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

// Parse returns the first candidate any strategy recovers from raw.
func (p *Parser) Parse(raw string) (Result, bool) {
	var (
		first Result
		found bool
	)
	p.All(raw)(func(r Result) bool {
		first, found = r, true
		return false
	})
	if found {
		return first, true
	}
	parseStrategyTotal.WithLabelValues("none").Inc()
	return Result{}, false
}

// All yields every strategy's candidate in precedence order, skipping
// strategies that fail. Callers stop early by breaking out of the loop.
func (p *Parser) All(raw string) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		if strings.TrimSpace(raw) == "" {
			return
		}
		for _, s := range p.strategies {
			c, ok := p.try(s, raw)
			if !ok {
				continue
			}
			parseStrategyTotal.WithLabelValues(s.name).Inc()
			p.log().Debug("structured output recovered", "strategy", s.name, "keys", len(c))
			if !yield(Result{Candidate: c, Strategy: s.name}) {
				return
			}
		}
	}
}

func (p *Parser) try(s namedStrategy, raw string) (c Candidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log().Warn("parse strategy panicked", "strategy", s.name, "panic", r)
			c, ok = nil, false
		}
	}()
	c, ok = s.fn(raw)
	if ok && c == nil {
		return nil, false
	}
	return c, ok
}

var defaultParser = NewParser(nil)

// Parse runs the default strategy cascade.
func Parse(raw string) (Result, bool) { return defaultParser.Parse(raw) }
