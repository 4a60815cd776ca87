package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	logger.Named("cleaner").Warn("w")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
	assert.Equal(t, 1, logger.CountLevel("warn"))
	assert.Equal(t, "cleaner", logger.GetMessages()[1].Logger)
}

func TestFixtures_AreConsistent(t *testing.T) {
	raw := testutil.SmallModel()
	assert.NotEmpty(t, raw.Reactions)
	ids := map[string]bool{}
	for _, m := range raw.Metabolites {
		ids[m.ID] = true
	}
	for _, r := range raw.Reactions {
		for id := range r.Metabolites {
			assert.True(t, ids[id], "reaction %s references %s", r.ID, id)
		}
	}
}
