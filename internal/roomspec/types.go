// Package roomspec defines the structured room model shared by the analysis,
// estimation, and render stages, plus the style and product types the pipeline
// consumes from the surrounding application.
//
// Wall indices are camera-relative, never compass-relative. The numbering is a
// load-bearing convention threaded through every stage; use the WallIndex
// constants instead of bare integers.
package roomspec

import (
	"fmt"
	"math"
)

// WallIndex identifies a wall relative to where the camera stands.
type WallIndex int

const (
	WallFar          WallIndex = 0
	WallRight        WallIndex = 1
	WallBehindCamera WallIndex = 2
	WallLeft         WallIndex = 3
)

// Valid reports whether the index is one of the four camera-relative walls.
func (w WallIndex) Valid() bool {
	return w >= WallFar && w <= WallLeft
}

func (w WallIndex) String() string {
	switch w {
	case WallFar:
		return "far"
	case WallRight:
		return "right"
	case WallBehindCamera:
		return "behind-camera"
	case WallLeft:
		return "left"
	default:
		return fmt.Sprintf("wall(%d)", int(w))
	}
}

// LayoutShape is the coarse floor-plan classification of the room.
type LayoutShape string

const (
	LayoutRectangle LayoutShape = "RECTANGLE"
	LayoutLShape    LayoutShape = "L_SHAPE"
	LayoutSquare    LayoutShape = "SQUARE"
)

// FixtureType enumerates the elements the analysis stage may report.
type FixtureType string

const (
	FixtureToilet   FixtureType = "TOILET"
	FixtureShower   FixtureType = "SHOWER"
	FixtureBathtub  FixtureType = "BATHTUB"
	FixtureSink     FixtureType = "SINK"
	FixtureWindow   FixtureType = "WINDOW"
	FixtureDoor     FixtureType = "DOOR"
	FixtureRadiator FixtureType = "RADIATOR"
	FixtureObstacle FixtureType = "OBSTACLE"
)

// FixtureCondition is the observed state of an existing fixture.
type FixtureCondition string

const (
	ConditionGood    FixtureCondition = "GOOD"
	ConditionWorn    FixtureCondition = "WORN"
	ConditionDamaged FixtureCondition = "DAMAGED"
	ConditionUnknown FixtureCondition = "UNKNOWN"
)

// Fixture is one element found in the photo. Positions are percentages of the
// photo frame (0-100), not physical coordinates.
type Fixture struct {
	Type        FixtureType      `json:"type"`
	Description string           `json:"description"`
	PositionX   *float64         `json:"positionX,omitempty"`
	PositionY   *float64         `json:"positionY,omitempty"`
	WallIndex   *WallIndex       `json:"wallIndex,omitempty"`
	Condition   FixtureCondition `json:"condition,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
}

// CameraPosition describes where the photo was taken from.
type CameraPosition string

const (
	CameraEyeLevel CameraPosition = "EYE_LEVEL"
	CameraElevated CameraPosition = "ELEVATED"
	CameraCorner   CameraPosition = "CORNER"
	CameraLowAngle CameraPosition = "LOW_ANGLE"
)

// LensFeel describes the apparent focal length of the photo.
type LensFeel string

const (
	LensWideAngle LensFeel = "WIDE_ANGLE"
	LensNormal    LensFeel = "NORMAL"
	LensTelephoto LensFeel = "TELEPHOTO"
)

// CameraSpec captures the framing of the original photo so the render stage
// can reproduce it. FacingFromWall is by convention always the behind-camera
// wall (index 2).
type CameraSpec struct {
	Position       CameraPosition `json:"position"`
	FacingFromWall WallIndex      `json:"facingFromWall"`
	LensFeel       LensFeel       `json:"lensFeel"`
}

// AnchorElement is the kind of opening an anchor marks.
type AnchorElement string

const (
	AnchorDoor   AnchorElement = "DOOR"
	AnchorWindow AnchorElement = "WINDOW"
	AnchorNiche  AnchorElement = "NICHE"
)

// Point is a percentage coordinate in photo-frame space (0-100).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShellAnchor marks a door, window, or niche as a quad of frame-space corner
// points. Anchors survive the mental strip-to-shell step of the render prompt:
// the image model must not move or resize them.
type ShellAnchor struct {
	ElementType   AnchorElement `json:"elementType"`
	TopLeft       Point         `json:"tl"`
	TopRight      Point         `json:"tr"`
	BottomRight   Point         `json:"br"`
	BottomLeft    Point         `json:"bl"`
	DoorHingeSide string        `json:"doorHingeSide,omitempty"`
	DoorSwing     string        `json:"doorSwing,omitempty"`
	Confidence    float64       `json:"confidence"`
}

// WallSpec describes one of the up to four camera-relative walls.
type WallSpec struct {
	WallIndex   WallIndex     `json:"wallIndex"`
	Visible     bool          `json:"visible"`
	HasPlumbing bool          `json:"hasPlumbing"`
	Anchors     []ShellAnchor `json:"anchors,omitempty"`
	Features    string        `json:"features,omitempty"`
}

// ProjectSpec is the structured understanding of the physical room. It is
// produced once per run by the analysis stage (or its fallback), optionally
// merged with user-entered dimensions, then consumed read-only by the
// estimation and render stages.
type ProjectSpec struct {
	RoomType              string      `json:"roomType"`
	LayoutShape           LayoutShape `json:"layoutShape"`
	EstimatedWidthMeters  float64     `json:"estimatedWidthMeters"`
	EstimatedLengthMeters float64     `json:"estimatedLengthMeters"`
	CeilingHeightMeters   float64     `json:"ceilingHeightMeters"`
	TotalAreaM2           float64     `json:"totalAreaM2"`
	DimensionConfidence   float64     `json:"dimensionConfidence,omitempty"`
	ExistingFixtures      []Fixture   `json:"existingFixtures"`
	Camera                *CameraSpec `json:"camera,omitempty"`
	Walls                 []WallSpec  `json:"walls,omitempty"`
	PlumbingWall          *WallIndex  `json:"plumbingWall,omitempty"`
	Occlusions            []string    `json:"occlusions,omitempty"`
	NaturalDescription    string      `json:"naturalDescription,omitempty"`
}

// Area returns width × length rounded to two decimals.
func Area(width, length float64) float64 {
	return math.Round(width*length*100) / 100
}

// RecomputeArea restores the TotalAreaM2 invariant from the current dimensions.
func (s *ProjectSpec) RecomputeArea() {
	s.TotalAreaM2 = Area(s.EstimatedWidthMeters, s.EstimatedLengthMeters)
}

// StyleTag is one weighted tag from the controlled style vocabulary.
type StyleTag struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

// StyleSource records where a style profile came from.
type StyleSource string

const (
	StyleSourcePreset   StyleSource = "preset"
	StyleSourceAIVision StyleSource = "ai_vision"
	StyleSourceCombined StyleSource = "combined"
)

// ExpertAnalysis is the optional current-state narrative attached to a style
// profile by the surrounding application.
type ExpertAnalysis struct {
	CurrentState    string   `json:"currentState,omitempty"`
	ConditionScore  int      `json:"conditionScore,omitempty"` // 1-10
	KeepElements    []string `json:"keepElements,omitempty"`
	Opportunities   []string `json:"opportunities,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	LayoutAdvice    string   `json:"layoutAdvice,omitempty"`
	ComplexityTier  string   `json:"complexityTier,omitempty"`
}

// StyleProfile is the desired aesthetic, as weighted controlled-vocabulary
// tags plus a free-text summary.
type StyleProfile struct {
	Tags               []StyleTag      `json:"tags"`
	Summary            string          `json:"summary"`
	Source             StyleSource     `json:"source"`
	PresetID           string          `json:"presetId,omitempty"`
	PresetName         string          `json:"presetName,omitempty"`
	ReferenceImageURLs []string        `json:"referenceImageUrls,omitempty"`
	ExpertAnalysis     *ExpertAnalysis `json:"expertAnalysis,omitempty"`
}

// Category is one of the fixed renovation categories.
type Category string

const (
	CategoryTile     Category = "Tile"
	CategoryVanity   Category = "Vanity"
	CategoryToilet   Category = "Toilet"
	CategoryFaucet   Category = "Faucet"
	CategoryShower   Category = "Shower"
	CategoryBathtub  Category = "Bathtub"
	CategoryMirror   Category = "Mirror"
	CategoryLighting Category = "Lighting"
)

// Categories lists every renovation category in display order.
func Categories() []Category {
	return []Category{
		CategoryTile, CategoryVanity, CategoryToilet, CategoryFaucet,
		CategoryShower, CategoryBathtub, CategoryMirror, CategoryLighting,
	}
}

// ProductAction is the per-category decision applied during render and costing.
type ProductAction string

const (
	ActionReplace ProductAction = "replace"
	ActionKeep    ProductAction = "keep"
	ActionAdd     ProductAction = "add"
	ActionRemove  ProductAction = "remove"
)

// DatabaseProduct is one concrete catalog product.
type DatabaseProduct struct {
	SKU         string   `json:"sku"`
	Category    Category `json:"category"`
	Brand       string   `json:"brand"`
	Name        string   `json:"name"`
	PriceLow    float64  `json:"price_low"`
	PriceHigh   float64  `json:"price_high"`
	PriceTier   string   `json:"price_tier"`
	Description string   `json:"description,omitempty"`
	ImageRef    string   `json:"image_ref,omitempty"`
}

// MaterialConfig maps each renovation category to its action and optional
// concrete product choice. Categories absent from the map default to replace.
type MaterialConfig struct {
	Actions  map[Category]ProductAction    `json:"actions,omitempty"`
	Products map[Category]*DatabaseProduct `json:"products,omitempty"`
}

// ActionFor returns the effective action for a category, defaulting to replace.
func (m MaterialConfig) ActionFor(c Category) ProductAction {
	if a, ok := m.Actions[c]; ok {
		return a
	}
	return ActionReplace
}

// BudgetTier steers product selection within the supplied catalog.
type BudgetTier string

const (
	TierBudget   BudgetTier = "BUDGET"
	TierStandard BudgetTier = "STANDARD"
	TierPremium  BudgetTier = "PREMIUM"
)

// CostCategory groups estimate line items.
type CostCategory string

const (
	CostMaterials CostCategory = "Materials"
	CostLabor     CostCategory = "Labor"
	CostOther     CostCategory = "Other"
)

// CostItem is one line of an estimate.
type CostItem struct {
	Category    CostCategory `json:"category"`
	Description string       `json:"description"`
	Amount      float64      `json:"amount"`
	Unit        string       `json:"unit"`
	UnitPrice   float64      `json:"unitPrice"`
	TotalPrice  float64      `json:"totalPrice"`
}

// Estimate is the terminal cost artifact of one pipeline run.
type Estimate struct {
	LineItems   []CostItem `json:"lineItems"`
	Subtotal    float64    `json:"subtotal"`
	Contingency float64    `json:"contingency"`
	Tax         float64    `json:"tax"`
	GrandTotal  float64    `json:"grandTotal"`
	Currency    string     `json:"currency"`
	Summary     string     `json:"summary"`
	Fallback    bool       `json:"fallback,omitempty"`
}
