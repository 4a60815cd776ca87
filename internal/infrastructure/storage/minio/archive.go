package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

const (
	modelsPrefix    = "models/"
	snapshotsPrefix = "snapshots/"
	exportsPrefix   = "exports/"

	contentTypeJSON = "application/json"
)

// ModelArchive keeps uploaded model documents, snapshot copies and exports
// in the object store.
type ModelArchive struct {
	objects *ObjectRepository
	logger  logging.Logger
}

var _ explorer.ModelArchive = (*ModelArchive)(nil)

func NewModelArchive(client *MinIOClient, log logging.Logger) *ModelArchive {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ModelArchive{objects: NewObjectRepository(client, log), logger: log}
}

// PutModel stores a raw model document under key.
func (a *ModelArchive) PutModel(ctx context.Context, key string, data []byte) error {
	_, err := a.objects.Upload(ctx, key, data, contentTypeJSON, map[string]string{"kind": "model"})
	return err
}

// GetModel reads back and decodes a stored model document.
func (a *ModelArchive) GetModel(ctx context.Context, key string) (metabolic.RawModel, error) {
	data, err := a.objects.Download(ctx, key)
	if err != nil {
		return metabolic.RawModel{}, err
	}
	return explorer.DecodeModel(bytes.NewReader(data))
}

// ListModels lists the documents archived for sessionID, oldest first.
func (a *ModelArchive) ListModels(ctx context.Context, sessionID string) ([]*ObjectMetadata, error) {
	return a.objects.List(ctx, modelsPrefix+sessionID+"/", 0)
}

// PutSnapshot stores a copy of rec and returns its key.
func (a *ModelArchive) PutSnapshot(ctx context.Context, rec *explorer.SnapshotRecord) (string, error) {
	if rec == nil || rec.ID == "" || rec.SessionID == "" {
		return "", errors.InvalidParam("snapshot id and session id are required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode snapshot")
	}
	key := snapshotKey(rec.SessionID, rec.ID)
	if _, err := a.objects.Upload(ctx, key, data, contentTypeJSON, map[string]string{"kind": "snapshot"}); err != nil {
		return "", err
	}
	return key, nil
}

func (a *ModelArchive) GetSnapshot(ctx context.Context, sessionID, snapshotID string) (*explorer.SnapshotRecord, error) {
	data, err := a.objects.Download(ctx, snapshotKey(sessionID, snapshotID))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeObjectNotFound) {
			return nil, errors.New(errors.CodeSnapshotNotFound, "snapshot not found").WithDetail("id=" + snapshotID)
		}
		return nil, err
	}
	var rec explorer.SnapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotIncomplete, "stored snapshot is unreadable")
	}
	return &rec, nil
}

// PutExport stores an export artifact under exports/, where objects expire.
func (a *ModelArchive) PutExport(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := path.Join(exportsPrefix, name)
	if _, err := a.objects.Upload(ctx, key, data, contentType, map[string]string{"kind": "export"}); err != nil {
		return "", err
	}
	a.logger.Info("stored export", logging.String("key", key), logging.Int("bytes", len(data)))
	return key, nil
}

func snapshotKey(sessionID, snapshotID string) string {
	return snapshotsPrefix + sessionID + "/" + snapshotID + ".json"
}
