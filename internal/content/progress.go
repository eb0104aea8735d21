package content

import "strings"

// GoalBar is one target bar on a progress chart.
type GoalBar struct {
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	BarColor      string  `json:"barColor,omitempty"`
	MarkerEnabled bool    `json:"markerEnabled,omitempty"`
	MarkerColor   string  `json:"markerColor,omitempty"`
}

// Donations is the raised-to-date bar on a progress chart.
type Donations struct {
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// LegacyBar is the old chart shape: a flat list of labeled bars. Kept only
// so existing documents still load; see ProgressGoal.Normalize.
type LegacyBar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// ProgressGoal is one fundraising goal card. The canonical representation
// is Goals plus Donations; Bars is the legacy shape migrated at load time.
type ProgressGoal struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Link      string      `json:"link,omitempty"`
	Goals     []GoalBar   `json:"goals,omitempty"`
	Donations *Donations  `json:"donations,omitempty"`
	Bars      []LegacyBar `json:"bars,omitempty"`
	Order     int         `json:"order"`
}

func (g ProgressGoal) ItemID() string { return g.ID }

// ProgressDoc is the top-level shape of the progress collection document.
type ProgressDoc struct {
	Goals []ProgressGoal `json:"goals"`
}

// Normalize migrates a goal loaded in the legacy bars shape to the
// canonical goals/donations shape. A bar labeled "raised" becomes the
// donations value; "goal" and "phase" bars become goal entries, with phase
// bars rendered as markers. Goals already in the new shape pass through
// unchanged. The legacy list is dropped after migration so the document
// converges on one shape.
func (g *ProgressGoal) Normalize() {
	if len(g.Goals) > 0 || g.Donations != nil {
		g.Bars = nil
		return
	}
	for _, bar := range g.Bars {
		label := strings.ToLower(bar.Label)
		switch {
		case strings.Contains(label, "raised"):
			g.Donations = &Donations{Value: bar.Value, Color: bar.Color}
		case strings.Contains(label, "phase"):
			g.Goals = append(g.Goals, GoalBar{
				Name:          bar.Label,
				Value:         bar.Value,
				BarColor:      bar.Color,
				MarkerEnabled: true,
				MarkerColor:   bar.Color,
			})
		default:
			g.Goals = append(g.Goals, GoalBar{
				Name:     bar.Label,
				Value:    bar.Value,
				BarColor: bar.Color,
			})
		}
	}
	g.Bars = nil
}

// NormalizeProgress migrates every goal in a document once at load time.
func NormalizeProgress(doc *ProgressDoc) {
	for i := range doc.Goals {
		doc.Goals[i].Normalize()
	}
}

// SortProgress orders goals by their explicit order field, ascending.
func SortProgress(goals []ProgressGoal) {
	stableSort(goals, func(a, b ProgressGoal) bool { return a.Order < b.Order })
}
