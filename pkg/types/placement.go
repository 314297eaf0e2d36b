package types

// Place identifies where an operator button is rendered.
type Place string

const (
	PlaceSamplesGridActions          Place = "SAMPLES-GRID-ACTIONS"
	PlaceSamplesGridSecondaryActions Place = "SAMPLES-GRID-SECONDARY-ACTIONS"
	PlaceSamplesViewerActions        Place = "SAMPLES-VIEWER-ACTIONS"
)

// Places lists every supported placement in display order.
var Places = []Place{
	PlaceSamplesGridActions,
	PlaceSamplesGridSecondaryActions,
	PlaceSamplesViewerActions,
}

// Placement binds an operator to a button in the host UI.
type Placement struct {
	Place  Place  `json:"place"`
	Label  string `json:"label,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Prompt bool   `json:"prompt,omitempty"`
}
