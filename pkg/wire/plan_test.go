package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcsturman/callisto-sub000/pkg/core"
)

func TestPlanToWireScalesAccelOnly(t *testing.T) {
	plan := core.FlightPlan{
		{Accel: core.Vec3{2, 0, 0}, Duration: 1000},
		{Accel: core.Vec3{0, -1, 0}, Duration: 500},
	}

	wirePlan := PlanToWire(plan)
	assert.InDelta(t, 2*StandardGravity, wirePlan[0].Accel[0], 1e-9)
	assert.InDelta(t, -StandardGravity, wirePlan[1].Accel[1], 1e-9)
	assert.Equal(t, uint64(1000), wirePlan[0].Duration)
	assert.Equal(t, uint64(500), wirePlan[1].Duration)

	// the input plan is untouched
	assert.Equal(t, 2.0, plan[0].Accel[0])
}

func TestPlanFromWireInvertsPlanToWire(t *testing.T) {
	plan := core.FlightPlan{{Accel: core.Vec3{1.5, -0.25, 3}, Duration: 250}}
	back := PlanFromWire(PlanToWire(plan))
	for i := range plan[0].Accel {
		assert.InDelta(t, plan[0].Accel[i], back[0].Accel[i], 1e-9)
	}
}

func TestPlanWireFormatOmitsAbsentSecondLeg(t *testing.T) {
	plan := core.FlightPlan{{Accel: core.Vec3{9.807, 0, 0}, Duration: 2000}}
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.JSONEq(t, `[[[9.807,0,0],2000]]`, string(data))
}

func TestPlanWireFormatTwoLegs(t *testing.T) {
	data := []byte(`[[[1,0,0],1000],[[0,0,-2],42]]`)
	var plan core.FlightPlan
	require.NoError(t, json.Unmarshal(data, &plan))
	require.Len(t, plan, 2)
	assert.Equal(t, core.Vec3{1, 0, 0}, plan[0].Accel)
	assert.Equal(t, uint64(42), plan[1].Duration)
	require.NotNil(t, plan.Next())
	assert.Equal(t, core.Vec3{0, 0, -2}, plan.Next().Accel)
}

func TestAccelConversions(t *testing.T) {
	a := AccelToWire(core.Vec3{1, 0, 0})
	assert.InDelta(t, 9.807, a[0], 1e-9)
	b := AccelFromWire(a)
	assert.InDelta(t, 1.0, b[0], 1e-9)
}
