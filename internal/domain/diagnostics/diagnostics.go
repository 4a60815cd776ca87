// Package diagnostics collects the anomalies that the analysis pipeline
// detects while it keeps running on best-effort values. Each diagnostic is a
// {severity, code, context} record so that callers and tests can assert on
// what was found without parsing log text.
package diagnostics

import (
	"sort"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Code identifies the kind of anomaly.
type Code string

// Data discrepancies between compartmental duplicates.
const (
	CodeChargeDiscrepancy  Code = "CHARGE_DISCREPANCY"
	CodeFormulaDiscrepancy Code = "FORMULA_DISCREPANCY"
	CodeFormulaGeneric     Code = "FORMULA_GENERIC"
	CodeNameDiscrepancy    Code = "NAME_DISCREPANCY"
	CodeNameRepaired       Code = "NAME_REPAIRED"
	CodeNameCorrected      Code = "NAME_CORRECTED"
)

// Referential integrity.
const (
	CodeCompartmentUnknown Code = "COMPARTMENT_UNKNOWN"
	CodeGeneOrphan         Code = "GENE_ORPHAN"
	CodeGeneMissing        Code = "GENE_MISSING"
	CodeMetaboliteMissing  Code = "METABOLITE_MISSING"
	CodeIdentifierRepaired Code = "IDENTIFIER_REPAIRED"
	CodeIdentifierSuffix   Code = "IDENTIFIER_SUFFIX"
)

// Structural anomalies.
const (
	CodeBoundUnexpected   Code = "BOUND_UNEXPECTED"
	CodeBoundSign         Code = "BOUND_SIGN"
	CodeBoundUpperZero    Code = "BOUND_UPPER_ZERO"
	CodeBoundBlocked      Code = "BOUND_BLOCKED"
	CodeParticipantZero   Code = "PARTICIPANT_ZERO"
	CodeReactionEmpty     Code = "REACTION_EMPTY"
	CodeProcessUnassigned Code = "PROCESS_UNASSIGNED"
)

// Curation outcomes.
const (
	CodeCurationApplied Code = "CURATION_APPLIED"
	CodeCurationSkipped Code = "CURATION_SKIPPED"
)

// Diagnostic is one detected anomaly.
type Diagnostic struct {
	Severity Severity          `json:"severity"`
	Code     Code              `json:"code"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

// Report is the ordered list of diagnostics produced by a run.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Len returns the number of diagnostics.
func (r Report) Len() int { return len(r.Diagnostics) }

// Has reports whether any diagnostic carries code.
func (r Report) Has(code Code) bool {
	for _, d := range r.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// ByCode returns the diagnostics carrying code, in detection order.
func (r Report) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Counts tallies diagnostics per code.
func (r Report) Counts() map[Code]int {
	counts := make(map[Code]int)
	for _, d := range r.Diagnostics {
		counts[d.Code]++
	}
	return counts
}

// Codes returns the distinct codes in ascending order.
func (r Report) Codes() []Code {
	counts := r.Counts()
	codes := make([]Code, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Merge returns a report holding r's diagnostics followed by other's.
func (r Report) Merge(other Report) Report {
	out := make([]Diagnostic, 0, len(r.Diagnostics)+len(other.Diagnostics))
	out = append(out, r.Diagnostics...)
	out = append(out, other.Diagnostics...)
	return Report{Diagnostics: out}
}

// Collector accumulates diagnostics and mirrors each one to a logger.
// A Collector is not safe for concurrent use; each pipeline run owns one.
type Collector struct {
	logger logging.Logger
	items  []Diagnostic
}

// NewCollector returns a Collector that logs through logger. A nil logger
// disables logging.
func NewCollector(logger logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Collector{logger: logger}
}

// Info records an informational diagnostic.
func (c *Collector) Info(code Code, msg string, kv ...string) {
	c.add(SeverityInfo, code, msg, kv)
}

// Warn records a warning.
func (c *Collector) Warn(code Code, msg string, kv ...string) {
	c.add(SeverityWarning, code, msg, kv)
}

// Error records an error-severity diagnostic. Processing still continues.
func (c *Collector) Error(code Code, msg string, kv ...string) {
	c.add(SeverityError, code, msg, kv)
}

func (c *Collector) add(sev Severity, code Code, msg string, kv []string) {
	d := Diagnostic{Severity: sev, Code: code, Message: msg}
	fields := []logging.Field{logging.String("code", string(code))}
	if len(kv) > 0 {
		d.Context = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			d.Context[kv[i]] = kv[i+1]
			fields = append(fields, logging.String(kv[i], kv[i+1]))
		}
	}
	c.items = append(c.items, d)

	switch sev {
	case SeverityInfo:
		c.logger.Debug(msg, fields...)
	case SeverityWarning:
		c.logger.Warn(msg, fields...)
	default:
		c.logger.Error(msg, fields...)
	}
}

// Report returns a copy of everything collected so far.
func (c *Collector) Report() Report {
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return Report{Diagnostics: out}
}
