package estimate

import (
	"fmt"
	"strings"
)

// LaborRate is one row of the fixed labor-rate table. The model must use these
// rates exactly and may never invent its own.
type LaborRate struct {
	Code        string
	Description string
	Unit        string
	Rate        float64 // EUR per unit
}

// laborRates is the non-negotiable rate table given to the estimation model.
var laborRates = []LaborRate{
	{Code: "DEMO_M2", Description: "Demolition and strip-out of existing finishes and fixtures", Unit: "m2", Rate: 45},
	{Code: "PLUMB_ROUGH", Description: "Plumbing rough-in, per supply/drain point at existing location", Unit: "point", Rate: 180},
	{Code: "PLUMB_RELOC", Description: "Plumbing point relocation away from the existing plumbing wall", Unit: "point", Rate: 350},
	{Code: "ELEC_POINT", Description: "Electrical point (outlet, switch, or luminaire feed)", Unit: "point", Rate: 95},
	{Code: "WTRPRF_M2", Description: "Waterproofing membrane in wet zones", Unit: "m2", Rate: 35},
	{Code: "SCREED_M2", Description: "Leveling screed on floor", Unit: "m2", Rate: 28},
	{Code: "TILE_FLR_M2", Description: "Floor tiling, adhesive and grout included", Unit: "m2", Rate: 55},
	{Code: "TILE_WALL_M2", Description: "Wall tiling, adhesive and grout included", Unit: "m2", Rate: 65},
	{Code: "FIX_INSTALL", Description: "Fixture installation and connection (toilet, vanity, shower set, bathtub, mirror, light)", Unit: "fixture", Rate: 150},
	{Code: "PAINT_M2", Description: "Painting of non-tiled wall and ceiling surfaces", Unit: "m2", Rate: 18},
	{Code: "WASTE_CTR", Description: "Waste container and disposal", Unit: "container", Rate: 400},
}

// demolitionCode marks the only labor operations a removed category may carry.
const demolitionCode = "DEMO_M2"

// rateByCode returns the fixed rate for a labor code, if the code is known.
func rateByCode(code string) (LaborRate, bool) {
	for _, r := range laborRates {
		if r.Code == code {
			return r, true
		}
	}
	return LaborRate{}, false
}

// laborTableText renders the rate table for prompt embedding.
func laborTableText() string {
	var b strings.Builder
	b.WriteString("LABOR RATE TABLE (fixed and non-negotiable; use these rates exactly, never invent your own):\n")
	for _, r := range laborRates {
		fmt.Fprintf(&b, "- %s | %s | %.2f EUR per %s\n", r.Code, r.Description, r.Rate, r.Unit)
	}
	return b.String()
}
