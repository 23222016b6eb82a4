package models

// Dashboard is a search hit, used when listing what can be reported on.
type Dashboard struct {
	ID          int64
	UID         string
	Title       string
	FolderTitle string
	Slug        string
}

// DashboardDocument is the envelope returned by /api/dashboards/uid/{uid}.
type DashboardDocument struct {
	Dashboard *DashboardNode `json:"dashboard"`
}

// DashboardNode is the root of the panel tree. It never becomes a panel itself.
type DashboardNode struct {
	ID         *int64      `json:"id"`
	UID        string      `json:"uid"`
	Title      *string     `json:"title"`
	Time       *TimeRange  `json:"time"`
	Templating *Templating `json:"templating"`
	Panels     []PanelNode `json:"panels"`
}

type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Templating struct {
	List []TemplateVar `json:"list"`
}

type TemplateVar struct {
	Name    string       `json:"name"`
	Current VarSelection `json:"current"`
}

// VarSelection is the selected value of a templating variable. Grafana sends
// multi-value selections as arrays, which are joined by the decoder.
type VarSelection struct {
	Text  TextValue `json:"text"`
	Value TextValue `json:"value"`
}

// PanelNode is one node in the panel tree. Rows may nest further panels.
type PanelNode struct {
	ID         *int64                  `json:"id"`
	Title      *string                 `json:"title"`
	Type       *string                 `json:"type"`
	GridPos    *GridPos                `json:"gridPos"`
	ScopedVars map[string]VarSelection `json:"scopedVars,omitempty"`
	Panels     []PanelNode             `json:"panels,omitempty"`
}

type GridPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}
