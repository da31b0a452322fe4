package roomspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func baseSpec() *ProjectSpec {
	s := &ProjectSpec{
		RoomType:              "bathroom",
		LayoutShape:           LayoutRectangle,
		EstimatedWidthMeters:  2.5,
		EstimatedLengthMeters: 3.0,
		CeilingHeightMeters:   2.4,
		DimensionConfidence:   0.7,
	}
	s.RecomputeArea()
	return s
}

func TestMergeDimensions_UserValuesWin(t *testing.T) {
	spec := baseSpec()
	merged := MergeDimensions(spec, &ManualDimensions{
		WidthMeters:  f64(2.0),
		LengthMeters: f64(2.2),
	})

	assert.Equal(t, 2.0, merged.EstimatedWidthMeters)
	assert.Equal(t, 2.2, merged.EstimatedLengthMeters)
	assert.Equal(t, 2.4, merged.CeilingHeightMeters, "ceiling untouched when not supplied")
	assert.Equal(t, 4.4, merged.TotalAreaM2, "area follows the merged dimensions")
	assert.Equal(t, 1.0, merged.DimensionConfidence, "manual input is authoritative")
}

func TestMergeDimensions_PartialOverride(t *testing.T) {
	spec := baseSpec()
	merged := MergeDimensions(spec, &ManualDimensions{LengthMeters: f64(4.0)})

	assert.Equal(t, 2.5, merged.EstimatedWidthMeters, "estimated width kept")
	assert.Equal(t, 4.0, merged.EstimatedLengthMeters)
	assert.Equal(t, 10.0, merged.TotalAreaM2)
}

func TestMergeDimensions_NilAndEmpty(t *testing.T) {
	spec := baseSpec()

	merged := MergeDimensions(spec, nil)
	assert.Equal(t, spec.TotalAreaM2, merged.TotalAreaM2)
	assert.Equal(t, 0.7, merged.DimensionConfidence)

	merged = MergeDimensions(spec, &ManualDimensions{})
	assert.Equal(t, spec.TotalAreaM2, merged.TotalAreaM2)
}

func TestMergeDimensions_IgnoresNonPositive(t *testing.T) {
	spec := baseSpec()
	merged := MergeDimensions(spec, &ManualDimensions{
		WidthMeters:         f64(0),
		LengthMeters:        f64(-3),
		CeilingHeightMeters: f64(2.7),
	})

	assert.Equal(t, 2.5, merged.EstimatedWidthMeters)
	assert.Equal(t, 3.0, merged.EstimatedLengthMeters)
	assert.Equal(t, 2.7, merged.CeilingHeightMeters)
	assert.Equal(t, 0.7, merged.DimensionConfidence, "rejected values do not raise confidence")
}

func TestMergeDimensions_DoesNotMutateInput(t *testing.T) {
	spec := baseSpec()
	_ = MergeDimensions(spec, &ManualDimensions{WidthMeters: f64(9)})

	require.Equal(t, 2.5, spec.EstimatedWidthMeters)
	require.Equal(t, 7.5, spec.TotalAreaM2)
}

func TestManualDimensions_Empty(t *testing.T) {
	var m *ManualDimensions
	assert.True(t, m.Empty())
	assert.True(t, (&ManualDimensions{}).Empty())
	assert.False(t, (&ManualDimensions{CeilingHeightMeters: f64(2.4)}).Empty())
}

func TestArea_Rounding(t *testing.T) {
	assert.Equal(t, 7.5, Area(2.5, 3.0))
	assert.Equal(t, 5.06, Area(2.25, 2.25))
}

func TestWallIndex(t *testing.T) {
	assert.True(t, WallFar.Valid())
	assert.True(t, WallLeft.Valid())
	assert.False(t, WallIndex(4).Valid())
	assert.False(t, WallIndex(-1).Valid())
	assert.Equal(t, "behind-camera", WallBehindCamera.String())
}

func TestMaterialConfig_ActionFor(t *testing.T) {
	mc := MaterialConfig{Actions: map[Category]ProductAction{
		CategoryBathtub: ActionRemove,
		CategoryMirror:  ActionKeep,
	}}
	assert.Equal(t, ActionRemove, mc.ActionFor(CategoryBathtub))
	assert.Equal(t, ActionKeep, mc.ActionFor(CategoryMirror))
	assert.Equal(t, ActionReplace, mc.ActionFor(CategoryTile), "unset categories default to replace")
}
