package analysis

import (
	"encoding/json"

	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// responseSchema constrains the vision model's structured output. Field names
// here are the wire contract; mapping to roomspec happens in toProjectSpec.
const responseSchema = `{
  "type": "OBJECT",
  "properties": {
    "room_type": {"type": "STRING"},
    "layout_shape": {"type": "STRING", "enum": ["RECTANGLE", "L_SHAPE", "SQUARE"]},
    "dimensions": {
      "type": "OBJECT",
      "properties": {
        "width_meters": {"type": "NUMBER"},
        "length_meters": {"type": "NUMBER"},
        "ceiling_height_meters": {"type": "NUMBER"},
        "confidence": {"type": "NUMBER"}
      },
      "required": ["width_meters", "length_meters"]
    },
    "camera": {
      "type": "OBJECT",
      "properties": {
        "position": {"type": "STRING", "enum": ["EYE_LEVEL", "ELEVATED", "CORNER", "LOW_ANGLE"]},
        "lens_feel": {"type": "STRING", "enum": ["WIDE_ANGLE", "NORMAL", "TELEPHOTO"]}
      }
    },
    "walls": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "wall_index": {"type": "INTEGER"},
          "visible": {"type": "BOOLEAN"},
          "has_plumbing": {"type": "BOOLEAN"},
          "features": {"type": "STRING"},
          "anchors": {
            "type": "ARRAY",
            "items": {
              "type": "OBJECT",
              "properties": {
                "element_type": {"type": "STRING", "enum": ["DOOR", "WINDOW", "NICHE"]},
                "tl": {"type": "OBJECT", "properties": {"x": {"type": "NUMBER"}, "y": {"type": "NUMBER"}}},
                "tr": {"type": "OBJECT", "properties": {"x": {"type": "NUMBER"}, "y": {"type": "NUMBER"}}},
                "br": {"type": "OBJECT", "properties": {"x": {"type": "NUMBER"}, "y": {"type": "NUMBER"}}},
                "bl": {"type": "OBJECT", "properties": {"x": {"type": "NUMBER"}, "y": {"type": "NUMBER"}}},
                "door_hinge_side": {"type": "STRING"},
                "door_swing": {"type": "STRING"},
                "confidence": {"type": "NUMBER"}
              },
              "required": ["element_type", "tl", "tr", "br", "bl"]
            }
          }
        },
        "required": ["wall_index", "visible"]
      }
    },
    "fixtures": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "type": {"type": "STRING", "enum": ["TOILET", "SHOWER", "BATHTUB", "SINK", "WINDOW", "DOOR", "RADIATOR", "OBSTACLE"]},
          "description": {"type": "STRING"},
          "position_x": {"type": "NUMBER"},
          "position_y": {"type": "NUMBER"},
          "wall_index": {"type": "INTEGER"},
          "condition": {"type": "STRING", "enum": ["GOOD", "WORN", "DAMAGED", "UNKNOWN"]},
          "confidence": {"type": "NUMBER"}
        },
        "required": ["type", "description"]
      }
    },
    "plumbing_wall": {"type": "INTEGER"},
    "light_direction": {"type": "STRING"},
    "occlusions": {"type": "ARRAY", "items": {"type": "STRING"}},
    "natural_description": {"type": "STRING"}
  },
  "required": ["room_type", "layout_shape", "dimensions", "fixtures", "natural_description"]
}`

// Wire-shape structs matching responseSchema.

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireAnchor struct {
	ElementType   string    `json:"element_type"`
	TL            wirePoint `json:"tl"`
	TR            wirePoint `json:"tr"`
	BR            wirePoint `json:"br"`
	BL            wirePoint `json:"bl"`
	DoorHingeSide string    `json:"door_hinge_side,omitempty"`
	DoorSwing     string    `json:"door_swing,omitempty"`
	Confidence    float64   `json:"confidence"`
}

type wireWall struct {
	WallIndex   int          `json:"wall_index"`
	Visible     bool         `json:"visible"`
	HasPlumbing bool         `json:"has_plumbing"`
	Features    string       `json:"features,omitempty"`
	Anchors     []wireAnchor `json:"anchors,omitempty"`
}

type wireFixture struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	PositionX   *float64 `json:"position_x,omitempty"`
	PositionY   *float64 `json:"position_y,omitempty"`
	WallIndex   *int     `json:"wall_index,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
}

type wireAnalysis struct {
	RoomType    string `json:"room_type"`
	LayoutShape string `json:"layout_shape"`
	Dimensions  struct {
		WidthMeters         float64 `json:"width_meters"`
		LengthMeters        float64 `json:"length_meters"`
		CeilingHeightMeters float64 `json:"ceiling_height_meters"`
		Confidence          float64 `json:"confidence"`
	} `json:"dimensions"`
	Camera *struct {
		Position string `json:"position"`
		LensFeel string `json:"lens_feel"`
	} `json:"camera,omitempty"`
	Walls              []wireWall    `json:"walls,omitempty"`
	Fixtures           []wireFixture `json:"fixtures"`
	PlumbingWall       *int          `json:"plumbing_wall,omitempty"`
	LightDirection     string        `json:"light_direction,omitempty"`
	Occlusions         []string      `json:"occlusions,omitempty"`
	NaturalDescription string        `json:"natural_description"`
}

// Defaults applied when the model omits optional fields.
const (
	defaultCeilingHeight = 2.4
	defaultWidthMeters   = 2.5
	defaultLengthMeters  = 3.0
)

// toProjectSpec maps the wire shape into a ProjectSpec, coercing every
// documented field and applying defined defaults for every optional one.
func toProjectSpec(raw json.RawMessage) (*roomspec.ProjectSpec, error) {
	var wa wireAnalysis
	if err := json.Unmarshal(raw, &wa); err != nil {
		return nil, err
	}

	spec := &roomspec.ProjectSpec{
		RoomType:              orDefault(wa.RoomType, "bathroom"),
		LayoutShape:           layoutShape(wa.LayoutShape),
		EstimatedWidthMeters:  positiveOr(wa.Dimensions.WidthMeters, defaultWidthMeters),
		EstimatedLengthMeters: positiveOr(wa.Dimensions.LengthMeters, defaultLengthMeters),
		CeilingHeightMeters:   positiveOr(wa.Dimensions.CeilingHeightMeters, defaultCeilingHeight),
		DimensionConfidence:   clamp01(wa.Dimensions.Confidence),
		Occlusions:            wa.Occlusions,
		NaturalDescription:    wa.NaturalDescription,
	}
	spec.RecomputeArea()

	if wa.Camera != nil {
		spec.Camera = &roomspec.CameraSpec{
			Position:       roomspec.CameraPosition(orDefault(wa.Camera.Position, string(roomspec.CameraEyeLevel))),
			FacingFromWall: roomspec.WallBehindCamera,
			LensFeel:       roomspec.LensFeel(orDefault(wa.Camera.LensFeel, string(roomspec.LensNormal))),
		}
	}

	for _, w := range wa.Walls {
		idx := roomspec.WallIndex(w.WallIndex)
		if !idx.Valid() {
			continue
		}
		wall := roomspec.WallSpec{
			WallIndex:   idx,
			Visible:     w.Visible,
			HasPlumbing: w.HasPlumbing,
			Features:    w.Features,
		}
		for _, a := range w.Anchors {
			wall.Anchors = append(wall.Anchors, roomspec.ShellAnchor{
				ElementType:   roomspec.AnchorElement(a.ElementType),
				TopLeft:       roomspec.Point(a.TL),
				TopRight:      roomspec.Point(a.TR),
				BottomRight:   roomspec.Point(a.BR),
				BottomLeft:    roomspec.Point(a.BL),
				DoorHingeSide: a.DoorHingeSide,
				DoorSwing:     a.DoorSwing,
				Confidence:    clamp01(a.Confidence),
			})
		}
		spec.Walls = append(spec.Walls, wall)
	}

	for _, f := range wa.Fixtures {
		fx := roomspec.Fixture{
			Type:        roomspec.FixtureType(f.Type),
			Description: f.Description,
			PositionX:   f.PositionX,
			PositionY:   f.PositionY,
			Condition:   fixtureCondition(f.Condition),
			Confidence:  clamp01(f.Confidence),
		}
		if f.WallIndex != nil {
			idx := roomspec.WallIndex(*f.WallIndex)
			if idx.Valid() {
				fx.WallIndex = &idx
			}
		}
		spec.ExistingFixtures = append(spec.ExistingFixtures, fx)
	}

	if wa.PlumbingWall != nil {
		idx := roomspec.WallIndex(*wa.PlumbingWall)
		if idx.Valid() {
			spec.PlumbingWall = &idx
		}
	}

	return spec, nil
}

// FallbackSpec is the hardcoded conservative default returned when analysis
// fails: a 2.5m × 3.0m rectangular bathroom with a single toilet fixture and
// no wall or camera data. Analysis failure never aborts the pipeline.
func FallbackSpec() *roomspec.ProjectSpec {
	spec := &roomspec.ProjectSpec{
		RoomType:              "bathroom",
		LayoutShape:           roomspec.LayoutRectangle,
		EstimatedWidthMeters:  defaultWidthMeters,
		EstimatedLengthMeters: defaultLengthMeters,
		CeilingHeightMeters:   defaultCeilingHeight,
		ExistingFixtures: []roomspec.Fixture{
			{
				Type:        roomspec.FixtureToilet,
				Description: "standard toilet, position unknown",
				Condition:   roomspec.ConditionUnknown,
			},
		},
	}
	spec.RecomputeArea()
	return spec
}

func layoutShape(s string) roomspec.LayoutShape {
	switch roomspec.LayoutShape(s) {
	case roomspec.LayoutLShape, roomspec.LayoutSquare:
		return roomspec.LayoutShape(s)
	default:
		return roomspec.LayoutRectangle
	}
}

func fixtureCondition(s string) roomspec.FixtureCondition {
	switch roomspec.FixtureCondition(s) {
	case roomspec.ConditionGood, roomspec.ConditionWorn, roomspec.ConditionDamaged:
		return roomspec.FixtureCondition(s)
	default:
		return roomspec.ConditionUnknown
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
