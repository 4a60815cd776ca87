package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/common"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

type snapshotRow struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	ArchiveKey string    `json:"archive_key,omitempty"`
}

type snapshotList []snapshotRow

func (l snapshotList) TableHeaders() []string {
	return []string{"ID", "SESSION", "NAME", "CREATED"}
}

func (l snapshotList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{r.ID, r.SessionID, r.Name, r.CreatedAt.Format(time.RFC3339)})
	}
	return rows
}

func rowOf(rec *explorer.SnapshotRecord) snapshotRow {
	return snapshotRow{ID: rec.ID, SessionID: rec.SessionID, Name: rec.Name, CreatedAt: rec.CreatedAt}
}

// NewSnapshotCmd saves, restores and lists pipeline snapshots in PostgreSQL.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore pipeline snapshots",
	}
	cmd.AddCommand(newSnapshotSaveCmd(), newSnapshotLoadCmd(), newSnapshotListCmd(), newSnapshotDeleteCmd())
	return cmd
}

func newSnapshotSaveCmd() *cobra.Command {
	opts := &pipelineOptions{}
	var name, sessionID string
	cmd := &cobra.Command{
		Use:   "save <model.json>",
		Short: "Run the pipeline on a model and save the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if name == "" {
				return errors.InvalidParam("--name is required")
			}
			st, err := opts.run(cliCtx, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()
			if err := b.openPostgres(ctx); err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = common.NewID().String()
			}
			rec := &explorer.SnapshotRecord{
				ID:        common.NewID().String(),
				SessionID: sessionID,
				Name:      name,
				Snapshot:  st.Snapshot(),
				CreatedAt: time.Now().UTC(),
			}
			if err := b.Snapshots.Save(ctx, rec); err != nil {
				return err
			}
			row := rowOf(rec)

			if cliCtx.Config.MinIO.Enabled {
				if err := b.openMinIO(); err != nil {
					return err
				}
				key, err := b.Archive.PutSnapshot(ctx, rec)
				if err != nil {
					cliCtx.Logger.Warn("snapshot saved but not archived", logging.String("snapshot_id", rec.ID), logging.Err(err))
				}
				row.ArchiveKey = key
			}
			return PrintResult(cmd, snapshotList{row})
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "snapshot name")
	cmd.Flags().StringVar(&sessionID, "session", "", "session the snapshot belongs to (default: random)")
	return cmd
}

func newSnapshotLoadCmd() *cobra.Command {
	var entity, archiveSession string
	cmd := &cobra.Command{
		Use:   "load <snapshot-id>",
		Short: "Restore a snapshot and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			e := metabolic.Entity(entity)
			if !e.Valid() {
				return errors.InvalidParam("unknown entity " + entity)
			}

			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()

			var rec *explorer.SnapshotRecord
			if archiveSession != "" {
				if err := b.openMinIO(); err != nil {
					return err
				}
				rec, err = b.Archive.GetSnapshot(ctx, archiveSession, args[0])
			} else {
				if err := b.openPostgres(ctx); err != nil {
					return err
				}
				rec, err = b.Snapshots.Get(ctx, args[0])
			}
			if err != nil {
				return err
			}

			st, err := explorer.NewService(cliCtx.Logger, nil).Restore(rec.Snapshot)
			if err != nil {
				return err
			}
			return PrintResult(cmd, summaryResult{Summary: st.Summaries[e], Filtered: st.Settings.Filter})
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", string(metabolic.EntityReactions), "entity population: reactions or metabolites")
	cmd.Flags().StringVar(&archiveSession, "from-archive", "", "read the snapshot of this session from MinIO instead of PostgreSQL")
	return cmd
}

func newSnapshotListCmd() *cobra.Command {
	var sessionID string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest snapshots of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if sessionID == "" {
				return errors.InvalidParam("--session is required")
			}
			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()
			if err := b.openPostgres(ctx); err != nil {
				return err
			}
			recs, err := b.Snapshots.List(ctx, sessionID, limit)
			if err != nil {
				return err
			}
			out := make(snapshotList, 0, len(recs))
			for _, rec := range recs {
				out = append(out, rowOf(rec))
			}
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots")
	return cmd
}

func newSnapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()
			b := newBackends(cliCtx.Config, cliCtx.Logger)
			defer b.Close()
			if err := b.openPostgres(ctx); err != nil {
				return err
			}
			if err := b.Snapshots.Delete(ctx, args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, "snapshot "+args[0]+" deleted")
			return nil
		},
	}
}
