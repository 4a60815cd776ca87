package explorer

import (
	"time"

	"github.com/turtacn/MetaboScope/internal/domain/assembly"
	"github.com/turtacn/MetaboScope/internal/domain/attribution"
	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/domain/cleaning"
	"github.com/turtacn/MetaboScope/internal/domain/curation"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/filtering"
	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/domain/relevance"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// Stage names a pipeline stage for timing.
type Stage string

const (
	StageClean       Stage = "clean"
	StageAssemble    Stage = "assemble"
	StageCurate      Stage = "curate"
	StageAttribution Stage = "attribution"
	StageFilter      Stage = "filter"
	StageSummary     Stage = "summary"
	StageContext     Stage = "context"
)

// Metrics receives pipeline measurements.
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	RecordDiagnostics(report diagnostics.Report)
	SetEntityCounts(entity metabolic.Entity, total, filtered int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(string, time.Duration)         {}
func (nopMetrics) RecordDiagnostics(diagnostics.Report)       {}
func (nopMetrics) SetEntityCounts(metabolic.Entity, int, int) {}

// Service defines the explorer actions. Each returns a new State and leaves
// its input untouched.
type Service interface {
	New(settings Settings) State
	Load(raw metabolic.RawModel, settings Settings) (State, error)
	ToggleSelection(st State, s metabolic.Selection) (State, error)
	SetFilter(st State, enabled bool) (State, error)
	SetCompartmentalization(st State, enabled bool) (State, error)
	ToggleSimplification(st State, entity metabolic.Entity, id, compartment string) (State, error)
	SetSearch(st State, entity metabolic.Entity, attr metabolic.Attribute, query string) (State, error)
	SetSort(st State, entity metabolic.Entity, attr metabolic.Attribute, sortBy cardinality.Sort) (State, error)
	Restore(snap Snapshot) (State, error)
}

type serviceImpl struct {
	logger   logging.Logger
	metrics  Metrics
	curation curation.Changes
	now      func() time.Time
}

// ServiceOption configures the explorer service.
type ServiceOption func(*serviceImpl)

// WithCuration applies changes to every model between assembly and
// attribution.
func WithCuration(changes curation.Changes) ServiceOption {
	return func(s *serviceImpl) { s.curation = changes }
}

// NewService creates the explorer service. A nil metrics discards
// measurements.
func NewService(logger logging.Logger, metrics Metrics, opts ...ServiceOption) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	s := &serviceImpl{logger: logger.Named("explorer"), metrics: metrics, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) New(settings Settings) State {
	return State{Settings: settings.Clone()}
}

func (s *serviceImpl) Load(raw metabolic.RawModel, settings Settings) (State, error) {
	if len(raw.Reactions) == 0 && len(raw.Metabolites) == 0 {
		return State{}, errors.New(errors.ErrCodeModelEmpty, "model has no metabolites or reactions")
	}
	if err := validateSettings(settings); err != nil {
		return State{}, err
	}

	diag := diagnostics.NewCollector(s.logger.Named("diagnostics"))
	var clean metabolic.CleanModel
	s.timed(StageClean, func() { clean = cleaning.Clean(raw, diag) })

	st := State{Settings: settings.Clone(), LoadedAt: s.now()}
	s.timed(StageAssemble, func() { st.Model = assembly.Build(clean, diag) })
	if !s.curation.Empty() {
		s.timed(StageCurate, func() { st.Model = curation.Curate(st.Model, s.curation, diag) })
	}
	assembly.Enrich(st.Model)
	st.Diagnostics = diag.Report()
	s.metrics.RecordDiagnostics(st.Diagnostics)

	st = s.recompute(st, StageAttribution)
	s.logger.Info("model loaded",
		logging.Int("metabolites", len(st.Model.Metabolites)),
		logging.Int("reactions", len(st.Model.Reactions)),
		logging.Int("diagnostics", st.Diagnostics.Len()))
	return st, nil
}

func (s *serviceImpl) ToggleSelection(st State, sel metabolic.Selection) (State, error) {
	if err := requireLoaded(st); err != nil {
		return st, err
	}
	if !sel.Attribute.Valid() || sel.Value == "" {
		return st, errors.Newf(errors.ErrCodeSelectionInvalid, "invalid selection %s=%q", sel.Attribute, sel.Value)
	}
	next := st
	next.Settings = st.Settings.Clone()
	next.Settings.Selections = filtering.ToggleSelection(st.Settings.Selections, sel)
	return s.recompute(next, StageFilter), nil
}

func (s *serviceImpl) SetFilter(st State, enabled bool) (State, error) {
	if err := requireLoaded(st); err != nil {
		return st, err
	}
	next := st
	next.Settings = st.Settings.Clone()
	next.Settings.Filter = enabled
	return s.recompute(next, StageFilter), nil
}

func (s *serviceImpl) SetCompartmentalization(st State, enabled bool) (State, error) {
	if err := requireLoaded(st); err != nil {
		return st, err
	}
	next := st
	next.Settings = st.Settings.Clone()
	next.Settings.Compartmentalization = enabled
	return s.recompute(next, StageFilter), nil
}

func (s *serviceImpl) ToggleSimplification(st State, entity metabolic.Entity, id, compartment string) (State, error) {
	if err := requireLoaded(st); err != nil {
		return st, err
	}
	if id == "" {
		return st, errors.InvalidParam("simplification id is required")
	}
	next := st
	next.Settings = st.Settings.Clone()
	simp := &next.Settings.Simplifications
	switch entity {
	case metabolic.EntityReactions:
		simp.Reactions = toggleString(simp.Reactions, id)
	case metabolic.EntityMetabolites:
		simp.Metabolites = toggleSimplification(simp.Metabolites, metabolic.Simplification{Metabolite: id, Compartment: compartment})
	default:
		return st, errors.InvalidParam("unknown entity " + string(entity))
	}
	return s.recompute(next, StageContext), nil
}

func (s *serviceImpl) SetSearch(st State, entity metabolic.Entity, attr metabolic.Attribute, query string) (State, error) {
	if err := requireLoaded(st); err != nil {
		return st, err
	}
	if !entity.Valid() || !attr.Valid() {
		return st, errors.InvalidParam("unknown entity or attribute")
	}
	next := st
	next.Settings = st.Settings.Clone()
	if next.Settings.Searches == nil {
		next.Settings.Searches = make(Searches)
	}
	if next.Settings.Searches[entity] == nil {
		next.Settings.Searches[entity] = make(map[metabolic.Attribute]string)
	}
	next.Settings.Searches[entity][attr] = query
	return s.recompute(next, StageSummary), nil
}

func (s *serviceImpl) SetSort(st State, entity metabolic.Entity, attr metabolic.Attribute, sortBy cardinality.Sort) (State, error) {
	if err := requireLoaded(st); err != nil {
		return st, err
	}
	if !entity.Valid() || !attr.Valid() {
		return st, errors.InvalidParam("unknown entity or attribute")
	}
	if !sortBy.Key.Valid() || !sortBy.Order.Valid() {
		return st, errors.Newf(errors.ErrCodeSortInvalid, "invalid sort %s/%s", sortBy.Key, sortBy.Order)
	}
	next := st
	next.Settings = st.Settings.Clone()
	if next.Settings.Sorts == nil {
		next.Settings.Sorts = make(Sorts)
	}
	if next.Settings.Sorts[entity] == nil {
		next.Settings.Sorts[entity] = make(map[metabolic.Attribute]cardinality.Sort)
	}
	next.Settings.Sorts[entity][attr] = sortBy
	return s.recompute(next, StageSummary), nil
}

// Restore rebuilds a State from a snapshot. Attribute sets are recomputed
// from the model rather than trusted.
func (s *serviceImpl) Restore(snap Snapshot) (State, error) {
	if snap.Version != SnapshotVersion {
		return State{}, errors.Newf(errors.ErrCodeSnapshotIncomplete, "unsupported snapshot version %d", snap.Version)
	}
	if err := validateSettings(snap.Settings); err != nil {
		return State{}, err
	}
	st := State{
		Model:       snap.Model,
		Diagnostics: snap.Diagnostics,
		Settings:    snap.Settings.Clone(),
		LoadedAt:    snap.LoadedAt,
	}
	if !st.Loaded() {
		return st, nil
	}
	if st.Model.Metabolites == nil {
		return State{}, errors.New(errors.ErrCodeSnapshotIncomplete, "snapshot model has reactions but no metabolites")
	}
	return s.recompute(st, StageAttribution), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline
// ─────────────────────────────────────────────────────────────────────────────

// downstream lists the stages recomputed after a change to the key stage.
var downstream = map[Stage][]Stage{
	StageAttribution: {StageAttribution, StageFilter, StageSummary, StageContext},
	StageFilter:      {StageFilter, StageSummary, StageContext},
	StageSummary:     {StageSummary},
	StageContext:     {StageContext},
}

func (s *serviceImpl) recompute(st State, from Stage) State {
	for _, stage := range downstream[from] {
		switch stage {
		case StageAttribution:
			s.timed(stage, func() { st.Sets = attribution.AttributeEntities(st.Model.Metabolites, st.Model.Reactions) })
		case StageFilter:
			s.timed(stage, func() { st.Filtered = filterState(st) })
		case StageSummary:
			s.timed(stage, func() { st.Summaries = summarizeState(st) })
		case StageContext:
			s.timed(stage, func() {
				st.Context = relevance.ResolveReactionContext(st.Settings.Compartmentalization, st.Settings.Simplifications, visibleReactions(st))
				st.Network = network.Build(st.Context, st.Model.Metabolites, st.Settings.Compartmentalization)
			})
		}
	}
	for _, entity := range []metabolic.Entity{metabolic.EntityMetabolites, metabolic.EntityReactions} {
		s.metrics.SetEntityCounts(entity, len(st.Sets.Records(entity)), len(st.Filtered.Records(entity)))
	}
	return st
}

func (s *serviceImpl) timed(stage Stage, fn func()) {
	start := s.now()
	fn()
	elapsed := s.now().Sub(start)
	s.metrics.ObserveStage(string(stage), elapsed)
	s.logger.Debug("stage complete", logging.String("stage", string(stage)), logging.Duration("elapsed", elapsed))
}

func filterState(st State) metabolic.AttributeSets {
	return filtering.FilterEntities(filtering.Input{
		Enabled:     st.Settings.Filter,
		Selections:  st.Settings.Selections,
		Sets:        st.Sets,
		Metabolites: st.Model.Metabolites,
		Reactions:   st.Model.Reactions,
	})
}

func summarizeState(st State) map[metabolic.Entity]cardinality.Summary {
	names := cardinality.ModelNames(st.Model)
	out := make(map[metabolic.Entity]cardinality.Summary, 2)
	for _, entity := range []metabolic.Entity{metabolic.EntityMetabolites, metabolic.EntityReactions} {
		out[entity] = cardinality.Summarize(entity, st.Filtered.Records(entity), names,
			st.Settings.Searches[entity], st.Settings.Sorts[entity])
	}
	return out
}

// visibleReactions limits the network to reactions that passed the filter.
func visibleReactions(st State) map[string]metabolic.Reaction {
	out := make(map[string]metabolic.Reaction, len(st.Filtered.Reactions))
	for id := range st.Filtered.Reactions {
		if r, ok := st.Model.Reactions[id]; ok {
			out[id] = r
		}
	}
	return out
}

func requireLoaded(st State) error {
	if !st.Loaded() {
		return errors.New(errors.ErrCodeModelNotLoaded, "no model loaded")
	}
	return nil
}

func validateSettings(s Settings) error {
	for _, sel := range s.Selections {
		if !sel.Attribute.Valid() {
			return errors.Newf(errors.ErrCodeSelectionInvalid, "unknown attribute %q", sel.Attribute)
		}
	}
	for _, byAttr := range s.Sorts {
		for _, sortBy := range byAttr {
			if !sortBy.Key.Valid() || !sortBy.Order.Valid() {
				return errors.Newf(errors.ErrCodeSortInvalid, "invalid sort %s/%s", sortBy.Key, sortBy.Order)
			}
		}
	}
	return nil
}

func toggleString(values []string, v string) []string {
	out := make([]string, 0, len(values)+1)
	removed := false
	for _, x := range values {
		if x == v {
			removed = true
			continue
		}
		out = append(out, x)
	}
	if !removed {
		out = append(out, v)
	}
	return out
}

func toggleSimplification(values []metabolic.Simplification, v metabolic.Simplification) []metabolic.Simplification {
	out := make([]metabolic.Simplification, 0, len(values)+1)
	removed := false
	for _, x := range values {
		if x == v {
			removed = true
			continue
		}
		out = append(out, x)
	}
	if !removed {
		out = append(out, v)
	}
	return out
}
