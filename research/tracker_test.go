package research

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepTracker(t *testing.T) {
	tr := NewStepTracker()

	assert.False(t, tr.Done(StagePlan))
	assert.Empty(t, tr.Completed())

	tr.MarkDone(StageReport)
	tr.MarkDone(StagePlan)
	tr.MarkDone(StagePlan)

	assert.True(t, tr.Done(StagePlan))
	assert.False(t, tr.Done(StageSearch))
	assert.Equal(t, []Stage{StagePlan, StageReport}, tr.Completed())
}

func TestStepTracker_Concurrent(t *testing.T) {
	tr := NewStepTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.MarkDone(Stages[i%len(Stages)])
			_ = tr.Done(StagePlan)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, Stages, tr.Completed())
}

func TestStage_Title(t *testing.T) {
	assert.Equal(t, "Plan", StagePlan.Title())
	assert.Equal(t, "Search", StageSearch.Title())
	assert.Equal(t, "Report", StageReport.Title())
}
