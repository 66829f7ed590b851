package deedtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/deed-db/deed/plan"
)

func TestStepClockAdvancesOnEachCall(t *testing.T) {
	c := NewStepClock(time.Unix(0, 0), time.Second)
	first := c.Now()
	second := c.Now()
	assert.Equal(t, time.Second, second.Sub(first))
}

func TestSeqIDGenIsIncrementing(t *testing.T) {
	g := &SeqIDGen{}
	assert.Equal(t, "1", g.NewID())
	assert.Equal(t, "2", g.NewID())
}

func TestNewDeterministicEngineRunsAQuery(t *testing.T) {
	e := NewDeterministicEngine(time.Unix(0, 0), 42)
	_, err := e.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	assert.NoError(t, err)
}
