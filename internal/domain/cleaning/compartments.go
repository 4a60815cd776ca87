package cleaning

import (
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// compartmentNames is the fixed vocabulary of compartment codes.
var compartmentNames = map[string]string{
	"b": "boundary",
	"c": "cytosol",
	"e": "extracellular region",
	"g": "golgi apparatus",
	"i": "mitochondrial intermembrane space",
	"l": "lysosome",
	"m": "mitochondrion",
	"n": "nucleus",
	"r": "endoplasmic reticulum",
	"x": "peroxisome",
}

// CompartmentName returns the canonical name of code and whether it is known.
func CompartmentName(code string) (string, bool) {
	name, ok := compartmentNames[code]
	return name, ok
}

// CleanCompartments maps each raw code through the fixed table. Unknown codes
// keep an empty name. The raw display names are ignored.
func CleanCompartments(raw map[string]string, diag *diagnostics.Collector) []metabolic.Compartment {
	out := make([]metabolic.Compartment, 0, len(raw))
	for _, code := range metabolic.SortedKeys(raw) {
		name, ok := CompartmentName(code)
		if !ok {
			diag.Warn(diagnostics.CodeCompartmentUnknown, "unknown compartment code",
				"compartment", code, "raw_name", raw[code])
		}
		out = append(out, metabolic.Compartment{ID: code, Name: name})
	}
	return out
}
