package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MetaboScope/internal/domain/network"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/neo4j"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
)

type exportResult struct {
	GraphID    string            `json:"graph_id"`
	Stats      neo4j.ExportStats `json:"stats"`
	ArchiveKey string            `json:"archive_key,omitempty"`
	Ego        *network.Network  `json:"ego,omitempty"`
}

func (r exportResult) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (r exportResult) TableRows() [][]string {
	rows := [][]string{
		{"graph_id", r.GraphID},
		{"metabolites", strconv.Itoa(r.Stats.Metabolites)},
		{"reactions", strconv.Itoa(r.Stats.Reactions)},
		{"links", strconv.Itoa(r.Stats.Links)},
		{"duration", r.Stats.Duration.String()},
	}
	if r.ArchiveKey != "" {
		rows = append(rows, []string{"archive_key", r.ArchiveKey})
	}
	if r.Ego != nil {
		for _, n := range r.Ego.SortedNodes() {
			rows = append(rows, []string{"ego." + string(n.Kind), n.ID})
		}
	}
	return rows
}

// NewExportGraphCmd writes the visible network of a model to Neo4j.
func NewExportGraphCmd() *cobra.Command {
	opts := &pipelineOptions{}
	var (
		graphID   string
		ego       string
		depth     int
		direction string
		archive   bool
	)
	cmd := &cobra.Command{
		Use:   "export-graph <model.json>",
		Short: "Export the filtered network to Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			dir := network.Direction(direction)
			if !dir.Valid() {
				return errors.InvalidParam("unknown direction " + direction)
			}
			st, err := opts.run(cliCtx, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()
			if err := b.openNeo4j(ctx); err != nil {
				return err
			}
			if graphID == "" {
				graphID = common.NewID().String()
			}

			stats, err := b.Graph.Export(ctx, graphID, st.Network)
			if err != nil {
				return err
			}
			res := exportResult{GraphID: graphID, Stats: stats}

			if archive {
				if err := b.openMinIO(); err != nil {
					return err
				}
				data, err := json.Marshal(st.Network)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode network")
				}
				if res.ArchiveKey, err = b.Archive.PutExport(ctx, fmt.Sprintf("graphs/%s.json", graphID), data, "application/json"); err != nil {
					return err
				}
			}
			if ego != "" {
				sub, err := b.Graph.Ego(ctx, graphID, ego, depth, dir)
				if err != nil {
					return err
				}
				res.Ego = &sub
			}
			cliCtx.Logger.Info("network exported",
				logging.String("graph_id", graphID),
				logging.Int("nodes", len(st.Network.Nodes)),
				logging.Int("links", len(st.Network.Links)))
			return PrintResult(cmd, res)
		},
	}
	opts.register(cmd)
	f := cmd.Flags()
	f.StringVar(&graphID, "graph-id", "", "graph identifier (default: random)")
	f.StringVar(&ego, "ego", "", "after export, fetch the neighborhood of this node id (e.g. reaction:HEX1)")
	f.IntVar(&depth, "depth", 1, "neighborhood depth for --ego")
	f.StringVar(&direction, "direction", string(network.DirectionBoth), "link direction for --ego: out, in or both")
	f.BoolVar(&archive, "archive", false, "also store the network JSON in the MinIO archive")
	return cmd
}
