package models

// Style is the set of inline CSS values applied to the displayed callsign element.
// An empty field means the property is left untouched.
type Style struct {
	Border       string `json:"border"`
	Padding      string `json:"padding"`
	MarginBottom string `json:"margin_bottom"`
	Display      string `json:"display,omitempty"`
}

var (
	// HighlightedStyle marks a callsign already present in the logbook.
	HighlightedStyle = Style{
		Border:       "2px solid lime",
		Padding:      "5px",
		MarginBottom: "10px",
		Display:      "inline-block",
	}

	// ClearedStyle removes the highlight.
	ClearedStyle = Style{
		Border:       "none",
		Padding:      "0",
		MarginBottom: "0",
	}
)

// Properties returns the CSS property/value pairs to set, in a stable order.
func (s Style) Properties() [][2]string {
	props := [][2]string{
		{"border", s.Border},
		{"padding", s.Padding},
		{"margin-bottom", s.MarginBottom},
	}
	if s.Display != "" {
		props = append(props, [2]string{"display", s.Display})
	}
	return props
}
