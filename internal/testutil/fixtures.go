package testutil

import "github.com/turtacn/MetaboScope/pkg/types/metabolic"

// SmallModel returns a compact, internally consistent model:
//
//	HEX1   glc_c + atp_c -> g6p_c + adp_c + h_c      Glycolysis (P1)
//	GLCt   glc_e <=> glc_c                           Transport, extracellular (P2)
//	ATPtm  atp_c + adp_m <=> atp_m + adp_c           Transport, mitochondrial (P3)
//	EX_glc glc_e <=>                                 Exchange (P4)
//	ATPM   atp_c -> adp_c + h_c                      Energy (P5)
//	ATPMm  atp_m -> adp_m + h_m                      Energy (P5)
//
// ATPM and ATPMm are replicates that differ only by compartment.
func SmallModel() metabolic.RawModel {
	return metabolic.RawModel{
		Compartments: map[string]string{"c": "cytosol", "e": "extracellular", "m": "mitochondrion"},
		Genes: []metabolic.RawGene{
			{ID: "HGNC:HGNC:10", Name: "HK1"},
			{ID: "HGNC:20", Name: "SLC2A1"},
			{ID: "HGNC:99", Name: "ORPHAN"},
		},
		Metabolites: []metabolic.RawMetabolite{
			{ID: "glc_c", Name: "D-glucose", Formula: "C6H12O6", Charge: metabolic.IntPtr(0), Compartment: "c"},
			{ID: "glc_e", Name: "D-glucose", Formula: "C6H12O6", Charge: metabolic.IntPtr(0), Compartment: "e"},
			{ID: "g6p_c", Name: "glucose 6-phosphate", Formula: "C6H11O9P", Charge: metabolic.IntPtr(-2), Compartment: "c"},
			{ID: "atp_c", Name: "ATP", Formula: "C10H12N5O13P3", Charge: metabolic.IntPtr(-4), Compartment: "c"},
			{ID: "atp_m", Name: "ATP", Formula: "C10H12N5O13P3", Charge: metabolic.IntPtr(-4), Compartment: "m"},
			{ID: "adp_c", Name: "ADP", Formula: "C10H12N5O10P2", Charge: metabolic.IntPtr(-3), Compartment: "c"},
			{ID: "adp_m", Name: "ADP", Formula: "C10H12N5O10P2", Charge: metabolic.IntPtr(-3), Compartment: "m"},
			{ID: "h_c", Name: "proton", Formula: "H", Charge: metabolic.IntPtr(1), Compartment: "c"},
			{ID: "h_m", Name: "proton", Formula: "H", Charge: metabolic.IntPtr(1), Compartment: "m"},
		},
		Reactions: []metabolic.RawReaction{
			{
				ID: "HEX1", Name: "hexokinase", Subsystem: "Glycolysis", GeneReactionRule: "HGNC:HGNC:10",
				LowerBound: 0, UpperBound: 1000,
				Metabolites: map[string]float64{"glc_c": -1, "atp_c": -1, "g6p_c": 1, "adp_c": 1, "h_c": 1},
			},
			{
				ID: "GLCt", Name: "glucose transport", Subsystem: "Transport, extracellular", GeneReactionRule: "HGNC:20",
				LowerBound: -1000, UpperBound: 1000,
				Metabolites: map[string]float64{"glc_e": -1, "glc_c": 1},
			},
			{
				ID: "ATPtm", Name: "ADP/ATP translocase", Subsystem: "Transport, mitochondrial", GeneReactionRule: "(HGNC:10 or HGNC:20)",
				LowerBound: -1000, UpperBound: 1000,
				Metabolites: map[string]float64{"atp_c": -1, "adp_m": -1, "atp_m": 1, "adp_c": 1},
			},
			{
				ID: "EX_glc", Name: "glucose exchange", Subsystem: "Exchange",
				LowerBound: -1000, UpperBound: 1000,
				Metabolites: map[string]float64{"glc_e": -1},
			},
			{
				ID: "ATPM", Name: "ATP maintenance", Subsystem: "Energy",
				LowerBound: 0, UpperBound: 1000,
				Metabolites: map[string]float64{"atp_c": -1, "adp_c": 1, "h_c": 1},
			},
			{
				ID: "ATPMm", Name: "ATP maintenance mitochondrial", Subsystem: "Energy",
				LowerBound: 0, UpperBound: 1000,
				Metabolites: map[string]float64{"atp_m": -1, "adp_m": 1, "h_m": 1},
			},
		},
	}
}
