package render

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// FidelityMode selects how aggressively the prompt locks structure.
type FidelityMode string

const (
	// FidelityBaseline sends the five conceptual steps with no extra locks.
	FidelityBaseline FidelityMode = "baseline"
	// FidelityStructureLocked adds the camera lock and per-anchor do-not-move
	// statements derived from the spec.
	FidelityStructureLocked FidelityMode = "structure_locked"
	// FidelityTwoPassLocked additionally runs the text-only guardrail pre-pass
	// and injects its locks verbatim.
	FidelityTwoPassLocked FidelityMode = "two_pass_locked"
)

// promptBuilder assembles the ordered sections of the render prompt. The five
// conceptual steps (study, strip, place, finish, self-check) are always
// present; lock sections are included per fidelity mode as data, not ad hoc
// string interpolation.
type promptBuilder struct {
	spec     *roomspec.ProjectSpec
	style    roomspec.StyleProfile
	products []SelectedProduct
	images   *ImageMap
	fidelity FidelityMode

	// Guardrail pre-pass output, injected verbatim in two_pass_locked mode.
	guardrail *GuardrailResult
}

// Build renders the full prompt text in section order.
func (b *promptBuilder) Build() string {
	var sections []string

	sections = append(sections, b.figureLegend())
	sections = append(sections, b.sectionStudy())
	if b.includeLocks() {
		sections = append(sections, b.sectionLocks())
	}
	sections = append(sections, b.sectionStrip())
	sections = append(sections, b.sectionPlace())
	sections = append(sections, b.sectionFinishes())
	sections = append(sections, b.sectionSelfCheck())

	return strings.Join(sections, "\n\n")
}

func (b *promptBuilder) includeLocks() bool {
	return b.fidelity == FidelityStructureLocked || b.fidelity == FidelityTwoPassLocked
}

func (b *promptBuilder) figureLegend() string {
	var sb strings.Builder
	sb.WriteString("ATTACHED IMAGES:\n")
	for _, label := range b.images.Labels() {
		sb.WriteString(label + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Step 1: study the photo as ground truth.
func (b *promptBuilder) sectionStudy() string {
	var sb strings.Builder
	sb.WriteString("STEP 1: STUDY. Treat Figure 1 as ground truth. Re-derive the room geometry, camera position, lens feel, and every visible architectural feature (doors, windows, niches, beams, slopes) from it before changing anything.\n")
	fmt.Fprintf(&sb, "Known geometry: %.2fm x %.2fm, ceiling %.2fm, layout %s.\n",
		b.spec.EstimatedWidthMeters, b.spec.EstimatedLengthMeters, b.spec.CeilingHeightMeters, b.spec.LayoutShape)
	if b.spec.Camera != nil {
		fmt.Fprintf(&sb, "Camera: %s, lens %s, standing against the %s wall.\n",
			b.spec.Camera.Position, b.spec.Camera.LensFeel, b.spec.Camera.FacingFromWall)
	}
	if b.spec.NaturalDescription != "" {
		sb.WriteString("Room description: " + b.spec.NaturalDescription)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Lock section: camera lock and per-anchor do-not-move statements, plus
// verbatim guardrail output when present.
func (b *promptBuilder) sectionLocks() string {
	var sb strings.Builder
	sb.WriteString("STRUCTURAL LOCKS (inviolable):\n")

	if b.guardrail != nil && b.guardrail.CameraLock != "" {
		sb.WriteString("Camera lock: " + b.guardrail.CameraLock + "\n")
	} else {
		sb.WriteString("Camera lock: keep the exact camera position, height, tilt, and field of view of Figure 1. Do not reframe, zoom, or change perspective.\n")
	}

	for _, wall := range b.spec.Walls {
		for _, a := range wall.Anchors {
			fmt.Fprintf(&sb, "- %s on the %s wall at corners (%.0f,%.0f)/(%.0f,%.0f)/(%.0f,%.0f)/(%.0f,%.0f)%% of frame: do not move, resize, or remove it.\n",
				a.ElementType, wall.WallIndex,
				a.TopLeft.X, a.TopLeft.Y, a.TopRight.X, a.TopRight.Y,
				a.BottomRight.X, a.BottomRight.Y, a.BottomLeft.X, a.BottomLeft.Y)
		}
	}

	if b.guardrail != nil {
		for _, lock := range b.guardrail.StructureLocks {
			sb.WriteString("- " + lock + "\n")
		}
		for _, note := range b.guardrail.RiskNotes {
			sb.WriteString("Risk note: " + note + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Step 2: strip to shell.
func (b *promptBuilder) sectionStrip() string {
	return "STEP 2: STRIP TO SHELL. Mentally remove every fixture and finish: toilet, vanity, bath, shower, tiles, paint, mirrors, lights, accessories. What remains is the bare shell: walls, floor, ceiling, and the openings (doors, windows, niches) exactly where Figure 1 shows them."
}

// Step 3: place fixtures per action.
func (b *promptBuilder) sectionPlace() string {
	var sb strings.Builder
	sb.WriteString("STEP 3: PLACE FIXTURES. Apply the action for each category:\n")
	for _, p := range b.products {
		switch p.Action {
		case roomspec.ActionKeep:
			fmt.Fprintf(&sb, "- %s: KEEP. Preserve the existing element exactly as in Figure 1.\n", p.Category)
		case roomspec.ActionRemove:
			fmt.Fprintf(&sb, "- %s: REMOVE. Delete the existing element and patch the surfaces seamlessly.\n", p.Category)
		case roomspec.ActionAdd:
			sb.WriteString(b.placeLine(p, "ADD. Introduce this product; none is present today."))
		default:
			sb.WriteString(b.placeLine(p, "REPLACE. Swap the existing element for this product."))
		}
	}
	sb.WriteString("Placement rules: at least 60cm of clear floor in front of every fixture; the toilet must not be in the direct sightline from the door; keep fixtures near the original plumbing wall")
	if b.spec.PlumbingWall != nil {
		fmt.Fprintf(&sb, " (the %s wall)", *b.spec.PlumbingWall)
	}
	sb.WriteString(" unless relocation is unavoidable.")
	return sb.String()
}

func (b *promptBuilder) placeLine(p SelectedProduct, verb string) string {
	name := string(p.Category)
	if p.Product != nil {
		name = fmt.Sprintf("%s %s", p.Product.Brand, p.Product.Name)
	}
	if fig, ok := b.images.FigureFor(p.Category); ok {
		return fmt.Sprintf("- %s: %s Use %s, matching Figure %d exactly in color, shape, material, and finish.\n", p.Category, verb, name, fig)
	}
	return fmt.Sprintf("- %s: %s Use %s.\n", p.Category, verb, name)
}

// Step 4: apply finishes and style.
func (b *promptBuilder) sectionFinishes() string {
	var sb strings.Builder
	sb.WriteString("STEP 4: APPLY FINISHES. Style the remaining surfaces:\n")
	if b.style.Summary != "" {
		sb.WriteString("Style: " + b.style.Summary + "\n")
	}
	for _, t := range b.style.Tags {
		fmt.Fprintf(&sb, "- %s (weight %.2f)\n", t.Tag, t.Weight)
	}
	sb.WriteString("Lighting: warm, approximately 3000K, soft shadows.\n")
	sb.WriteString("No decorative clutter: no plants, art, candles, or bottles. At most one or two towels.")
	return sb.String()
}

// Step 5: self-check before emitting.
func (b *promptBuilder) sectionSelfCheck() string {
	return "STEP 5: SELF-CHECK. Before emitting the image, verify against Figure 1: identical camera position and field of view, identical room geometry, every door, window, and niche in its original place and size. If any check fails, correct it first."
}
