package roomspec

// ManualDimensions carries user-entered measurements from the manual form.
// Nil fields were left blank.
type ManualDimensions struct {
	WidthMeters         *float64 `json:"widthMeters,omitempty"`
	LengthMeters        *float64 `json:"lengthMeters,omitempty"`
	CeilingHeightMeters *float64 `json:"ceilingHeightMeters,omitempty"`
}

// Empty reports whether no manual value was supplied.
func (m *ManualDimensions) Empty() bool {
	return m == nil || (m.WidthMeters == nil && m.LengthMeters == nil && m.CeilingHeightMeters == nil)
}

// MergeDimensions overlays user-entered dimensions on an AI-estimated spec and
// returns a new spec with the area invariant restored. User values always win
// over estimated ones; the input spec is not mutated.
func MergeDimensions(spec *ProjectSpec, manual *ManualDimensions) *ProjectSpec {
	merged := *spec
	if manual != nil {
		if manual.WidthMeters != nil && *manual.WidthMeters > 0 {
			merged.EstimatedWidthMeters = *manual.WidthMeters
			merged.DimensionConfidence = 1
		}
		if manual.LengthMeters != nil && *manual.LengthMeters > 0 {
			merged.EstimatedLengthMeters = *manual.LengthMeters
			merged.DimensionConfidence = 1
		}
		if manual.CeilingHeightMeters != nil && *manual.CeilingHeightMeters > 0 {
			merged.CeilingHeightMeters = *manual.CeilingHeightMeters
		}
	}
	merged.RecomputeArea()
	return &merged
}
