package level2

import "strings"

// Product is a Level II moment variable selectable for display.
type Product int

const (
	ProductUnknown Product = iota
	Reflectivity
	Velocity
	SpectrumWidth
	DifferentialReflectivity
	DifferentialPhase
	CorrelationCoefficient
	ClutterFilterPowerRemoved
)

// DataBlockType identifies a moment data block within a radial record.
type DataBlockType int

const (
	BlockUnknown DataBlockType = iota
	MomentRef
	MomentVel
	MomentSw
	MomentZdr
	MomentPhi
	MomentRho
	MomentCfp
)

var productNames = map[Product]string{
	Reflectivity:              "Reflectivity",
	Velocity:                  "Velocity",
	SpectrumWidth:             "Spectrum Width",
	DifferentialReflectivity:  "Differential Reflectivity",
	DifferentialPhase:         "Differential Phase",
	CorrelationCoefficient:    "Correlation Coefficient",
	ClutterFilterPowerRemoved: "Clutter Filter Power Removed",
}

var productShortNames = map[string]Product{
	"REF": Reflectivity,
	"VEL": Velocity,
	"SW":  SpectrumWidth,
	"ZDR": DifferentialReflectivity,
	"PHI": DifferentialPhase,
	"RHO": CorrelationCoefficient,
	"CFP": ClutterFilterPowerRemoved,
}

var blockTypes = map[Product]DataBlockType{
	Reflectivity:              MomentRef,
	Velocity:                  MomentVel,
	SpectrumWidth:             MomentSw,
	DifferentialReflectivity:  MomentZdr,
	DifferentialPhase:         MomentPhi,
	CorrelationCoefficient:    MomentRho,
	ClutterFilterPowerRemoved: MomentCfp,
}

var blockNames = map[DataBlockType]string{
	MomentRef: "REF",
	MomentVel: "VEL",
	MomentSw:  "SW ",
	MomentZdr: "ZDR",
	MomentPhi: "PHI",
	MomentRho: "RHO",
	MomentCfp: "CFP",
}

// String returns the display name of the product.
func (p Product) String() string {
	if name, ok := productNames[p]; ok {
		return name
	}
	return "Unknown"
}

// ParseProduct resolves a short product name (REF, VEL, SW, ZDR, PHI, RHO,
// CFP), ignoring case and surrounding space.
func ParseProduct(s string) (Product, bool) {
	p, ok := productShortNames[strings.ToUpper(strings.TrimSpace(s))]
	return p, ok
}

// BlockTypeFor returns the data block carrying the product's moments.
// The second result is false for products with no block mapping.
func BlockTypeFor(p Product) (DataBlockType, bool) {
	bt, ok := blockTypes[p]
	if !ok {
		return BlockUnknown, false
	}
	return bt, true
}

// String returns the three-character block name used in the archive format.
func (bt DataBlockType) String() string {
	if name, ok := blockNames[bt]; ok {
		return name
	}
	return "UNK"
}

// DataRange returns the closed raw-value interval a color lookup table must
// cover for the product. Values 0 and 1 are reserved (below threshold and
// range folded) and are never colored.
func DataRange(p Product) (rangeMin, rangeMax uint16) {
	switch p {
	case DifferentialReflectivity:
		return 2, 1058
	case DifferentialPhase:
		return 2, 1023
	case ClutterFilterPowerRemoved:
		return 8, 81
	default:
		// Reflectivity, Velocity, SpectrumWidth, CorrelationCoefficient
		return 2, 255
	}
}
