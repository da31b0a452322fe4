package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/genai"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

type fakeTextModel struct {
	raw   json.RawMessage
	err   error
	calls int
}

func (f *fakeTextModel) GenerateStructured(ctx context.Context, req genai.StructuredRequest, direct bool) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func instantExec() *upstream.Executor {
	return upstream.NewExecutor(zap.NewNop()).WithSleep(
		func(ctx context.Context, d time.Duration) error { return ctx.Err() })
}

func TestAnalyze_Success(t *testing.T) {
	model := &fakeTextModel{raw: json.RawMessage(`{
		"room_type": "bathroom",
		"layout_shape": "L_SHAPE",
		"dimensions": {"width_meters": 1.8, "length_meters": 2.6, "ceiling_height_meters": 2.5, "confidence": 0.8},
		"camera": {"position": "CORNER", "lens_feel": "WIDE_ANGLE"},
		"walls": [
			{"wall_index": 0, "visible": true, "has_plumbing": true},
			{"wall_index": 7, "visible": true}
		],
		"fixtures": [
			{"type": "TOILET", "description": "wall-hung toilet", "wall_index": 1, "condition": "WORN", "confidence": 0.9},
			{"type": "SINK", "description": "pedestal sink", "wall_index": 9}
		],
		"plumbing_wall": 0,
		"natural_description": "small L-shaped bathroom"
	}`)}
	stage := NewStage(model, instantExec(), zap.NewNop())

	spec := stage.Analyze(context.Background(), []byte("jpeg"), "image/jpeg", "")

	require.NotNil(t, spec)
	assert.Equal(t, roomspec.LayoutLShape, spec.LayoutShape)
	assert.Equal(t, 1.8, spec.EstimatedWidthMeters)
	assert.Equal(t, 4.68, spec.TotalAreaM2)
	assert.Equal(t, 0.8, spec.DimensionConfidence)

	require.NotNil(t, spec.Camera)
	assert.Equal(t, roomspec.CameraCorner, spec.Camera.Position)
	assert.Equal(t, roomspec.WallBehindCamera, spec.Camera.FacingFromWall,
		"the camera always faces out from the behind-camera wall")

	require.Len(t, spec.Walls, 1, "out-of-range wall indices are dropped")
	assert.Equal(t, roomspec.WallFar, spec.Walls[0].WallIndex)
	assert.True(t, spec.Walls[0].HasPlumbing)

	require.Len(t, spec.ExistingFixtures, 2)
	require.NotNil(t, spec.ExistingFixtures[0].WallIndex)
	assert.Equal(t, roomspec.WallRight, *spec.ExistingFixtures[0].WallIndex)
	assert.Nil(t, spec.ExistingFixtures[1].WallIndex, "invalid fixture wall index is dropped")
	assert.Equal(t, roomspec.ConditionUnknown, spec.ExistingFixtures[1].Condition)

	require.NotNil(t, spec.PlumbingWall)
	assert.Equal(t, roomspec.WallFar, *spec.PlumbingWall)
}

func TestAnalyze_DefaultsForOmittedFields(t *testing.T) {
	model := &fakeTextModel{raw: json.RawMessage(`{
		"room_type": "",
		"layout_shape": "TRIANGLE",
		"dimensions": {"width_meters": 0, "length_meters": -1},
		"fixtures": [],
		"natural_description": "bare"
	}`)}
	stage := NewStage(model, instantExec(), zap.NewNop())

	spec := stage.Analyze(context.Background(), []byte("jpeg"), "image/jpeg", "")

	assert.Equal(t, "bathroom", spec.RoomType)
	assert.Equal(t, roomspec.LayoutRectangle, spec.LayoutShape, "unknown shapes coerce to rectangle")
	assert.Equal(t, 2.5, spec.EstimatedWidthMeters)
	assert.Equal(t, 3.0, spec.EstimatedLengthMeters)
	assert.Equal(t, 2.4, spec.CeilingHeightMeters)
	assert.Equal(t, 7.5, spec.TotalAreaM2)
	assert.Nil(t, spec.Camera)
}

func TestAnalyze_CallFailureReturnsFallback(t *testing.T) {
	model := &fakeTextModel{err: &upstream.StatusError{Code: 500}}
	stage := NewStage(model, instantExec(), zap.NewNop())

	spec := stage.Analyze(context.Background(), []byte("jpeg"), "image/jpeg", "note")

	require.NotNil(t, spec)
	assert.Equal(t, 3, model.calls)
	assert.Equal(t, FallbackSpec(), spec)
}

func TestAnalyze_UnparseableResponseReturnsFallback(t *testing.T) {
	model := &fakeTextModel{raw: json.RawMessage(`not json at all`)}
	stage := NewStage(model, instantExec(), zap.NewNop())

	spec := stage.Analyze(context.Background(), []byte("jpeg"), "image/jpeg", "")

	require.NotNil(t, spec)
	assert.Equal(t, FallbackSpec(), spec)
}

func TestFallbackSpec(t *testing.T) {
	spec := FallbackSpec()

	assert.Equal(t, "bathroom", spec.RoomType)
	assert.Equal(t, roomspec.LayoutRectangle, spec.LayoutShape)
	assert.Equal(t, 7.5, spec.TotalAreaM2)
	require.Len(t, spec.ExistingFixtures, 1)
	assert.Equal(t, roomspec.FixtureToilet, spec.ExistingFixtures[0].Type)
	assert.Empty(t, spec.Walls)
	assert.Nil(t, spec.Camera)
}

func TestClampAndCoercionHelpers(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(3))
	assert.Equal(t, 0.4, clamp01(0.4))
	assert.Equal(t, roomspec.ConditionDamaged, fixtureCondition("DAMAGED"))
	assert.Equal(t, roomspec.ConditionUnknown, fixtureCondition("RUSTY"))
}
