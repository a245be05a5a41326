package cue

// region scroll behaviour
type Scroll string

const (
	ScrollNone Scroll = "none"
	ScrollUp   Scroll = "up"
)

// a point in percent of the region or viewport
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// a named on-screen layout descriptor a cue may reference
type Region struct {
	ID             string  `json:"id" yaml:"id"`
	WidthPercent   float64 `json:"width_percent" yaml:"width_percent"`
	Lines          int     `json:"lines" yaml:"lines"`
	Anchor         Point   `json:"anchor" yaml:"anchor"`
	ViewportAnchor Point   `json:"viewport_anchor" yaml:"viewport_anchor"`
	Scroll         Scroll  `json:"scroll" yaml:"scroll"`
}

// WebVTT defaults for a region with no settings
func DefaultRegion(id string) Region {
	return Region{
		ID:             id,
		WidthPercent:   100,
		Lines:          3,
		Anchor:         Point{X: 0, Y: 100},
		ViewportAnchor: Point{X: 0, Y: 100},
		Scroll:         ScrollNone,
	}
}

// resolves a region id without taking ownership of the region
type RegionLookup interface {
	Region(id string) (Region, bool)
}

// RegionTable is a RegionLookup backed by a map
type RegionTable map[string]Region

func (t RegionTable) Region(id string) (Region, bool) {
	r, ok := t[id]
	return r, ok
}

// RegionLookupFunc adapts a function to RegionLookup
type RegionLookupFunc func(id string) (Region, bool)

func (f RegionLookupFunc) Region(id string) (Region, bool) {
	return f(id)
}
