package model

// Sector is one of the four fixed geographic partitions of the corridor.
// Each sector hosts one resident AUV station.
type Sector struct {
	ID        string
	Name      string
	KPFrom    int // inclusive
	KPTo      int // exclusive
	StationID string
	StationKP int
}

// Sectors is the fixed partition table. Ranges tile the corridor exactly.
var Sectors = [4]Sector{
	{ID: "A", Name: "Northern Approach", KPFrom: 0, KPTo: 350, StationID: "station-a", StationKP: 150},
	{ID: "B", Name: "Central Trench", KPFrom: 350, KPTo: 1100, StationID: "station-b", StationKP: 700},
	{ID: "C", Name: "Escarpment Crossing", KPFrom: 1100, KPTo: 1650, StationID: "station-c", StationKP: 1380},
	{ID: "D", Name: "Southern Shelf", KPFrom: 1650, KPTo: 1900, StationID: "station-d", StationKP: 1780},
}

// SectorForKP returns the sector containing the given kilometre-point.
func SectorForKP(kp int) (Sector, bool) {
	for _, s := range Sectors {
		if kp >= s.KPFrom && kp < s.KPTo {
			return s, true
		}
	}
	return Sector{}, false
}

// SectorDataNode is the derived per-sector state. It is recomputed in full
// by the sector aggregator every world tick and never mutated elsewhere.
type SectorDataNode struct {
	Sector

	// StabilityIndex is in [0,100]; 100 means no accumulated uncertainty.
	StabilityIndex float64

	// AggregatedVariance is mean segment uncertainty across all assets in
	// the sector's KP range.
	AggregatedVariance float64
}
