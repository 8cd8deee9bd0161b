package decision

import (
	"sort"

	"verge/internal/pkg/symbol"
	"verge/internal/types"
)

// DefaultUniverse is searched when an AUTO strategy lists no symbols.
var DefaultUniverse = []string{"BTCUSDT"}

const earlyExitMargin = 10

// Evaluator is the engine surface the search depends on.
type Evaluator interface {
	Evaluate(state SessionState, style types.Style, mc *MarketContext) Result
}

// SearchRequest describes one session's search space. Selected* carry the
// candidate adopted on earlier cycles; only that candidate inherits the
// session's stage and confirmation counter.
type SearchRequest struct {
	SessionID     string
	Stage         types.Stage
	Symbol        string
	Timeframe     string
	Universe      []string
	Style         types.Style
	Direction     types.Direction
	Confirmations int

	SelectedSymbol    string
	SelectedStyle     types.Style
	SelectedDirection types.Direction
}

type Opportunity struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Style     types.Style     `json:"style"`
	Direction types.Direction `json:"direction"`
	Result    Result          `json:"result"`
	Context   *MarketContext  `json:"-"`
}

func (r SearchRequest) Symbols() []string {
	if !symbol.IsAuto(r.Symbol) {
		return []string{symbol.Normalize(r.Symbol)}
	}
	if u := symbol.NormalizeList(r.Universe); len(u) > 0 {
		return u
	}
	return DefaultUniverse
}

func (r SearchRequest) Styles() []types.Style {
	if r.Style == types.StyleAuto || r.Style == "" {
		return types.ConcreteStyles
	}
	return []types.Style{r.Style}
}

func (r SearchRequest) Directions() []types.Direction {
	if r.Direction == types.DirectionAuto || r.Direction == "" {
		return []types.Direction{types.DirectionLong, types.DirectionShort}
	}
	return []types.Direction{r.Direction}
}

// RequiredKeys lists every context the search may read: each candidate
// symbol at the session timeframe plus each style's confirmation timeframe.
func (r SearchRequest) RequiredKeys() []ContextKey {
	tf := symbol.Interval(r.Timeframe)
	seen := make(map[ContextKey]struct{})
	var out []ContextKey
	add := func(k ContextKey) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, sym := range r.Symbols() {
		add(ContextKey{Symbol: sym, Timeframe: tf})
		for _, style := range r.Styles() {
			add(ContextKey{Symbol: sym, Timeframe: GetProfile(style).ConfirmationTimeframe(tf)})
		}
	}
	return out
}

type AutoEvaluator struct {
	engine Evaluator
}

func NewAutoEvaluator(engine Evaluator) *AutoEvaluator {
	return &AutoEvaluator{engine: engine}
}

// FindBestOpportunity walks symbol x style x direction and keeps the highest
// score. A candidate that reaches Entry with margin over its entry threshold
// ends the search. Nil means no candidate had a context.
func (a *AutoEvaluator) FindBestOpportunity(req SearchRequest, contexts ContextMap) *Opportunity {
	var best *Opportunity
	a.walk(req, contexts, func(op Opportunity) bool {
		if best == nil || op.Result.Score > best.Result.Score {
			cp := op
			best = &cp
		}
		th := GetProfile(op.Style).Thresholds()
		return op.Result.Decision == Entry && op.Result.Score >= th.Entry+earlyExitMargin
	})
	return best
}

// FindTopOpportunities evaluates the whole space and returns the n best,
// highest score first.
func (a *AutoEvaluator) FindTopOpportunities(req SearchRequest, contexts ContextMap, n int) []Opportunity {
	var all []Opportunity
	a.walk(req, contexts, func(op Opportunity) bool {
		all = append(all, op)
		return false
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].Result.Score > all[j].Result.Score })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

func (a *AutoEvaluator) walk(req SearchRequest, contexts ContextMap, visit func(Opportunity) bool) {
	tf := symbol.Interval(req.Timeframe)
	for _, sym := range req.Symbols() {
		mc := contexts.Get(sym, tf)
		if mc == nil {
			continue
		}
		for _, style := range req.Styles() {
			ctx := mc
			if htfTF := GetProfile(style).ConfirmationTimeframe(tf); htfTF != tf {
				if htf := contexts.Get(sym, htfTF); htf != nil {
					ctx = mc.WithHigherTimeframe(htf)
				}
			}
			for _, dir := range req.Directions() {
				state := SessionState{ID: req.SessionID, Stage: types.StageEvaluating, Symbol: sym, Direction: dir}
				if req.isSelected(sym, style, dir) {
					state.Stage = req.Stage
					state.Confirmations = req.Confirmations
				}
				res := a.engine.Evaluate(state, style, ctx)
				if visit(Opportunity{Symbol: sym, Timeframe: tf, Style: style, Direction: dir, Result: res, Context: ctx}) {
					return
				}
			}
		}
	}
}

func (r SearchRequest) isSelected(sym string, style types.Style, dir types.Direction) bool {
	selSym := r.SelectedSymbol
	if selSym == "" && !symbol.IsAuto(r.Symbol) {
		selSym = symbol.Normalize(r.Symbol)
	}
	selStyle := r.SelectedStyle
	if selStyle == "" && r.Style != types.StyleAuto {
		selStyle = r.Style
	}
	selDir := r.SelectedDirection
	if selDir == "" && r.Direction != types.DirectionAuto {
		selDir = r.Direction
	}
	return selSym == sym && selStyle == style && selDir == dir
}
