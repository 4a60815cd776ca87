package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/testutil"
)

func TestCollector_RecordsAndLogs(t *testing.T) {
	log := testutil.NewMockLogger()
	c := NewCollector(log)

	c.Warn(CodeChargeDiscrepancy, "charge differs", "metabolite", "glc", "chosen", "0")
	c.Info(CodeNameRepaired, "name repaired", "metabolite", "lac")
	c.Error(CodeMetaboliteMissing, "missing metabolite", "reaction", "R1")

	r := c.Report()
	require.Equal(t, 3, r.Len())
	assert.Equal(t, SeverityWarning, r.Diagnostics[0].Severity)
	assert.Equal(t, "glc", r.Diagnostics[0].Context["metabolite"])
	assert.Equal(t, "0", r.Diagnostics[0].Context["chosen"])

	assert.True(t, log.HasMessage("warn", "charge differs"))
	assert.True(t, log.HasMessage("debug", "name repaired"))
	assert.True(t, log.HasMessage("error", "missing metabolite"))
}

func TestCollector_OddContextIgnoresDanglingKey(t *testing.T) {
	c := NewCollector(nil)
	c.Warn(CodeGeneOrphan, "orphan", "gene", "HGNC:1", "dangling")

	d := c.Report().Diagnostics[0]
	assert.Len(t, d.Context, 1)
}

func TestReport_Queries(t *testing.T) {
	c := NewCollector(nil)
	c.Warn(CodeGeneOrphan, "a")
	c.Warn(CodeBoundSign, "b")
	c.Warn(CodeGeneOrphan, "c")
	r := c.Report()

	assert.True(t, r.Has(CodeGeneOrphan))
	assert.False(t, r.Has(CodeBoundBlocked))
	assert.Len(t, r.ByCode(CodeGeneOrphan), 2)
	assert.Equal(t, 2, r.Counts()[CodeGeneOrphan])
	assert.Equal(t, []Code{CodeBoundSign, CodeGeneOrphan}, r.Codes())
}

func TestReport_IsSnapshot(t *testing.T) {
	c := NewCollector(nil)
	c.Warn(CodeGeneOrphan, "a")
	r := c.Report()
	c.Warn(CodeGeneOrphan, "b")

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 3, r.Merge(c.Report()).Len())
}
