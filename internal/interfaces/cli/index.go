package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/search/opensearch"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

type indexResult struct {
	SessionID string `json:"session_id"`
	Indexed   int    `json:"indexed"`
	Failed    int    `json:"failed"`
}

func (r indexResult) TableHeaders() []string { return []string{"SESSION", "INDEXED", "FAILED"} }

func (r indexResult) TableRows() [][]string {
	return [][]string{{r.SessionID, strconv.Itoa(r.Indexed), strconv.Itoa(r.Failed)}}
}

// NewIndexCmd puts every entity of a cleaned model into the search index.
func NewIndexCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "index <model.json>",
		Short: "Index the entities of a model in OpenSearch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			st, err := (&pipelineOptions{Entity: string(metabolic.EntityReactions)}).run(cliCtx, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()
			if err := b.openSearch(ctx); err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = common.NewID().String()
			}
			res, err := b.Indexer.IndexModel(ctx, sessionID, st.Model)
			if err != nil {
				return err
			}
			if res.Failed > 0 {
				cliCtx.Logger.Warn("some entities were not indexed",
					logging.String("session_id", sessionID), logging.Int("failed", res.Failed))
			}
			return PrintResult(cmd, indexResult{SessionID: sessionID, Indexed: res.Succeeded, Failed: res.Failed})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session the documents belong to (default: random)")
	return cmd
}

type searchResult struct {
	Total int                         `json:"total"`
	Hits  []opensearch.EntityDocument `json:"hits"`
}

func (r searchResult) TableHeaders() []string {
	return []string{"ENTITY", "ID", "NAME", "COMPARTMENTS", "PROCESSES"}
}

func (r searchResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Hits))
	for _, d := range r.Hits {
		rows = append(rows, []string{string(d.Entity), d.ID, d.Name,
			strings.Join(d.Compartments, ","), strings.Join(d.Processes, ",")})
	}
	return rows
}

// NewSearchCmd queries the entity index of a session.
func NewSearchCmd() *cobra.Command {
	var q opensearch.SearchQuery
	var entity string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search indexed metabolites and reactions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if q.SessionID == "" {
				return errors.InvalidParam("--session is required")
			}
			if entity != "" {
				q.Entity = metabolic.Entity(entity)
				if !q.Entity.Valid() {
					return errors.InvalidParam("unknown entity " + entity)
				}
			}
			if len(args) == 1 {
				q.Text = args[0]
			}

			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()
			if err := b.openSearch(ctx); err != nil {
				return err
			}
			res, err := b.Searcher.Search(ctx, q)
			if err != nil {
				return err
			}
			out := searchResult{Total: res.Total, Hits: make([]opensearch.EntityDocument, 0, len(res.Hits))}
			for _, h := range res.Hits {
				out.Hits = append(out.Hits, h.Document)
			}
			return PrintResult(cmd, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.SessionID, "session", "", "session to search in")
	f.StringVarP(&entity, "entity", "e", "", "restrict to metabolites or reactions")
	f.StringSliceVar(&q.Compartments, "compartment", nil, "restrict to compartments (repeatable)")
	f.StringSliceVar(&q.Processes, "process", nil, "restrict to processes (repeatable)")
	f.IntVar(&q.From, "from", 0, "offset of the first hit")
	f.IntVar(&q.Size, "size", 20, "number of hits")
	return cmd
}
