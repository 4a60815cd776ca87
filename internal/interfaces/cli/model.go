package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/domain/cardinality"
	"github.com/turtacn/MetaboScope/internal/domain/diagnostics"
	"github.com/turtacn/MetaboScope/internal/domain/relevance"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline flags
// ─────────────────────────────────────────────────────────────────────────────

// pipelineOptions are the settings flags shared by the offline commands.
type pipelineOptions struct {
	Selections           []string
	NoFilter             bool
	Compartmentalization bool
	Simplify             []string
	Searches             []string
	Sorts                []string
	Entity               string
	Curation             string
}

func (o *pipelineOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVarP(&o.Selections, "select", "s", nil, "toggle a selection attribute=value (repeatable)")
	f.BoolVar(&o.NoFilter, "no-filter", false, "ignore selections")
	f.BoolVar(&o.Compartmentalization, "compartmentalization", false, "keep compartment-specific metabolites apart")
	f.StringArrayVar(&o.Simplify, "simplify", nil, "hide metabolite[@compartment] or reaction:ID from the network (repeatable)")
	f.StringArrayVar(&o.Searches, "search", nil, "restrict summary values, attribute=query (repeatable)")
	f.StringArrayVar(&o.Sorts, "sort", nil, "order summary values, attribute=key:order, key count|name (repeatable)")
	f.StringVarP(&o.Entity, "entity", "e", string(metabolic.EntityReactions), "entity population: reactions or metabolites")
	f.StringVar(&o.Curation, "curation", "", "curation changes file (default pipeline.curation_path)")
}

// newService returns an explorer service that curates with the changes in
// path, or in pipeline.curation_path when path is empty.
func newService(cliCtx *CLIContext, path string) (explorer.Service, error) {
	if path == "" && cliCtx.Config != nil {
		path = cliCtx.Config.Pipeline.CurationPath
	}
	changes, err := explorer.ReadCurationFile(path)
	if err != nil {
		return nil, err
	}
	return explorer.NewService(cliCtx.Logger, nil, explorer.WithCuration(changes)), nil
}

func (o *pipelineOptions) entity() (metabolic.Entity, error) {
	e := metabolic.Entity(o.Entity)
	if !e.Valid() {
		return "", errors.InvalidParam("unknown entity " + o.Entity)
	}
	return e, nil
}

// run loads the model at path and applies every flag as an explorer action,
// in the order a user would click them.
func (o *pipelineOptions) run(cliCtx *CLIContext, path string) (explorer.State, error) {
	entity, err := o.entity()
	if err != nil {
		return explorer.State{}, err
	}
	raw, err := explorer.ReadModelFile(path)
	if err != nil {
		return explorer.State{}, err
	}

	settings := explorer.DefaultSettings()
	settings.Filter = !o.NoFilter
	settings.Compartmentalization = o.Compartmentalization

	svc, err := newService(cliCtx, o.Curation)
	if err != nil {
		return explorer.State{}, err
	}
	st, err := svc.Load(raw, settings)
	if err != nil {
		return explorer.State{}, err
	}

	for _, s := range o.Selections {
		attr, value, err := splitPair(s, "=", "select")
		if err != nil {
			return explorer.State{}, err
		}
		if st, err = svc.ToggleSelection(st, metabolic.Selection{Attribute: metabolic.Attribute(attr), Value: value}); err != nil {
			return explorer.State{}, err
		}
	}
	for _, s := range o.Simplify {
		simpEntity, id, compartment := parseSimplification(s)
		if st, err = svc.ToggleSimplification(st, simpEntity, id, compartment); err != nil {
			return explorer.State{}, err
		}
	}
	for _, s := range o.Searches {
		attr, query, err := splitPair(s, "=", "search")
		if err != nil {
			return explorer.State{}, err
		}
		if st, err = svc.SetSearch(st, entity, metabolic.Attribute(attr), query); err != nil {
			return explorer.State{}, err
		}
	}
	for _, s := range o.Sorts {
		attr, sortBy, err := parseSort(s)
		if err != nil {
			return explorer.State{}, err
		}
		if st, err = svc.SetSort(st, entity, attr, sortBy); err != nil {
			return explorer.State{}, err
		}
	}
	return st, nil
}

func splitPair(s, sep, flag string) (string, string, error) {
	k, v, ok := strings.Cut(s, sep)
	if !ok || k == "" {
		return "", "", errors.InvalidParam(fmt.Sprintf("--%s expects key%svalue, got %q", flag, sep, s))
	}
	return k, v, nil
}

// parseSimplification reads "reaction:ID", "metabolite@compartment" or a
// bare metabolite id.
func parseSimplification(s string) (metabolic.Entity, string, string) {
	if id, ok := strings.CutPrefix(s, "reaction:"); ok {
		return metabolic.EntityReactions, id, ""
	}
	id, compartment, _ := strings.Cut(s, "@")
	return metabolic.EntityMetabolites, id, compartment
}

func parseSort(s string) (metabolic.Attribute, cardinality.Sort, error) {
	attr, sortBy, err := splitPair(s, "=", "sort")
	if err != nil {
		return "", cardinality.Sort{}, err
	}
	key, order, ok := strings.Cut(sortBy, ":")
	if !ok {
		order = string(common.SortDesc)
	}
	return metabolic.Attribute(attr), cardinality.Sort{Key: cardinality.SortKey(key), Order: common.SortOrder(order)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// clean
// ─────────────────────────────────────────────────────────────────────────────

type cleanResult struct {
	Compartments int                `json:"compartments"`
	Genes        int                `json:"genes"`
	Processes    int                `json:"processes"`
	Metabolites  int                `json:"metabolites"`
	Reactions    int                `json:"reactions"`
	Diagnostics  diagnostics.Report `json:"diagnostics"`
	Model        *metabolic.Model   `json:"model,omitempty"`
}

func (r cleanResult) TableHeaders() []string { return []string{"SEVERITY", "CODE", "MESSAGE"} }

func (r cleanResult) TableRows() [][]string {
	rows := [][]string{
		{"-", "entities", fmt.Sprintf("%d compartments, %d genes, %d processes, %d metabolites, %d reactions",
			r.Compartments, r.Genes, r.Processes, r.Metabolites, r.Reactions)},
	}
	for _, d := range r.Diagnostics.Diagnostics {
		rows = append(rows, []string{string(d.Severity), string(d.Code), d.Message})
	}
	return rows
}

// NewCleanCmd cleans and assembles a model file and reports diagnostics.
func NewCleanCmd() *cobra.Command {
	var (
		withModel bool
		curation  string
	)
	cmd := &cobra.Command{
		Use:   "clean <model.json>",
		Short: "Clean a model file and list the diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			raw, err := explorer.ReadModelFile(args[0])
			if err != nil {
				return err
			}
			svc, err := newService(cliCtx, curation)
			if err != nil {
				return err
			}
			st, err := svc.Load(raw, explorer.DefaultSettings())
			if err != nil {
				return err
			}
			res := cleanResult{
				Compartments: len(st.Model.Compartments),
				Genes:        len(st.Model.Genes),
				Processes:    len(st.Model.Processes),
				Metabolites:  len(st.Model.Metabolites),
				Reactions:    len(st.Model.Reactions),
				Diagnostics:  st.Diagnostics,
			}
			if withModel {
				res.Model = &st.Model
			}
			return PrintResult(cmd, res)
		},
	}
	cmd.Flags().BoolVar(&withModel, "emit-model", false, "include the assembled model in JSON output")
	cmd.Flags().StringVar(&curation, "curation", "", "curation changes file (default pipeline.curation_path)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// summarize
// ─────────────────────────────────────────────────────────────────────────────

type summaryResult struct {
	cardinality.Summary
	Filtered bool `json:"filtered"`
}

func (r summaryResult) TableHeaders() []string {
	return []string{"ATTRIBUTE", "VALUE", "NAME", "COUNT"}
}

func (r summaryResult) TableRows() [][]string {
	var rows [][]string
	for _, a := range r.Attributes {
		for _, v := range a.Values {
			rows = append(rows, []string{string(a.Attribute), v.Value, v.Name, strconv.Itoa(v.Count)})
		}
	}
	return rows
}

// NewSummarizeCmd prints value counts per attribute for one entity.
func NewSummarizeCmd() *cobra.Command {
	opts := &pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "summarize <model.json>",
		Short: "Count attribute values of the filtered entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			st, err := opts.run(cliCtx, args[0])
			if err != nil {
				return err
			}
			entity, _ := opts.entity()
			return PrintResult(cmd, summaryResult{Summary: st.Summaries[entity], Filtered: st.Settings.Filter})
		},
	}
	opts.register(cmd)
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// filter
// ─────────────────────────────────────────────────────────────────────────────

type filterResult struct {
	Entity  metabolic.Entity                     `json:"entity"`
	Total   int                                  `json:"total"`
	Records map[string]metabolic.AttributeRecord `json:"records"`
}

func (r filterResult) TableHeaders() []string {
	headers := []string{"ID"}
	for _, a := range metabolic.Attributes {
		headers = append(headers, strings.ToUpper(string(a)))
	}
	return headers
}

func (r filterResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Records))
	for _, id := range metabolic.SortedKeys(r.Records) {
		row := []string{id}
		for _, a := range metabolic.Attributes {
			row = append(row, strings.Join(r.Records[id].Values[a], ","))
		}
		rows = append(rows, row)
	}
	return rows
}

// NewFilterCmd prints the entities that survive the selections.
func NewFilterCmd() *cobra.Command {
	opts := &pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "filter <model.json>",
		Short: "List entities and attribute values left by the selections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			st, err := opts.run(cliCtx, args[0])
			if err != nil {
				return err
			}
			entity, _ := opts.entity()
			return PrintResult(cmd, filterResult{
				Entity:  entity,
				Total:   len(st.Sets.Records(entity)),
				Records: st.Filtered.Records(entity),
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// context
// ─────────────────────────────────────────────────────────────────────────────

type contextResult struct {
	Reactions []relevance.ContextReaction `json:"reactions"`
	Nodes     int                         `json:"nodes"`
	Links     int                         `json:"links"`
}

func (r contextResult) TableHeaders() []string {
	return []string{"REACTION", "MEMBERS", "REACTANTS", "PRODUCTS"}
}

func (r contextResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Reactions))
	for _, cr := range r.Reactions {
		var reactants, products []string
		for _, p := range cr.Participants {
			name := p.Metabolite
			if p.Compartment != "" {
				name += "_" + p.Compartment
			}
			if p.Role == metabolic.RoleReactant {
				reactants = append(reactants, name)
			} else {
				products = append(products, name)
			}
		}
		rows = append(rows, []string{cr.ID, strings.Join(cr.Members, ","), strings.Join(reactants, " + "), strings.Join(products, " + ")})
	}
	return rows
}

// NewContextCmd prints the reactions that make up the visible network.
func NewContextCmd() *cobra.Command {
	opts := &pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "context <model.json>",
		Short: "Resolve the reaction context of the filtered network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			st, err := opts.run(cliCtx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, contextResult{
				Reactions: st.Context,
				Nodes:     len(st.Network.Nodes),
				Links:     len(st.Network.Links),
			})
		},
	}
	opts.register(cmd)
	return cmd
}
