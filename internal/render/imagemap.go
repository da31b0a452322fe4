package render

import (
	"fmt"

	"github.com/fyrsmithlabs/renovd/internal/genai"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// maxInspirationImages bounds the aesthetic-only reference images attached
// after the original photo.
const maxInspirationImages = 3

// ReferenceImage is one inline image handed to the image model.
type ReferenceImage struct {
	Data []byte
	MIME string
}

// SelectedProduct pairs a catalog product with its per-category action and
// optional product art.
type SelectedProduct struct {
	Category roomspec.Category
	Action   roomspec.ProductAction
	Product  *roomspec.DatabaseProduct
	Image    *ReferenceImage
}

// ImageMap tracks the fixed, labeled attachment order for one render call so
// the prompt can refer to "Figure N" consistently with the actually attached
// images. Figure 1 is always the original photo.
type ImageMap struct {
	parts   []genai.Part
	labels  []string
	figures map[roomspec.Category]int
}

// BuildImageMap assembles the attachment list: original photo first, then up
// to three inspiration images, then one image per selected product that has
// art available.
func BuildImageMap(photo ReferenceImage, inspiration []ReferenceImage, products []SelectedProduct) *ImageMap {
	m := &ImageMap{figures: make(map[roomspec.Category]int)}

	m.append(photo, "Figure 1: the original bathroom photo. GROUND TRUTH for geometry, camera, and openings.")

	for _, img := range inspiration {
		if len(m.parts) >= 1+maxInspirationImages {
			break
		}
		m.append(img, fmt.Sprintf("Figure %d: inspiration image. Aesthetic reference ONLY; do not copy its geometry.", len(m.parts)+1))
	}

	for _, p := range products {
		if p.Image == nil || p.Product == nil {
			continue
		}
		fig := len(m.parts) + 1
		m.figures[p.Category] = fig
		m.append(*p.Image, fmt.Sprintf("Figure %d: %s, %s %s. Match this product exactly.", fig, p.Category, p.Product.Brand, p.Product.Name))
	}

	return m
}

func (m *ImageMap) append(img ReferenceImage, label string) {
	m.parts = append(m.parts, genai.ImagePart(img.Data, img.MIME))
	m.labels = append(m.labels, label)
}

// Parts returns the image parts in attachment order.
func (m *ImageMap) Parts() []genai.Part { return m.parts }

// Labels returns the per-figure label lines in attachment order.
func (m *ImageMap) Labels() []string { return m.labels }

// Len returns the number of attached images.
func (m *ImageMap) Len() int { return len(m.parts) }

// FigureFor returns the 1-based figure index of a product category's art, if
// any was attached.
func (m *ImageMap) FigureFor(c roomspec.Category) (int, bool) {
	fig, ok := m.figures[c]
	return fig, ok
}
