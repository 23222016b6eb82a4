package report

import (
	"context"

	"github.com/samber/oops"

	"github.com/senpro-it/grafana-reporter/models"
)

// Dashboard is a point-in-time view of a Grafana dashboard. Panels are kept in
// breadth-first order of the panel tree, which is the order they are laid out in.
type Dashboard struct {
	UID      string
	ID       int64
	Title    string
	FromDate string
	ToDate   string
	DashVars map[string]string

	panels []*Panel
	index  map[int64]int
}

// NewDashboard fetches the dashboard identified by uid and builds its panels.
func NewDashboard(ctx context.Context, uid string, ds DataSource) (*Dashboard, error) {
	oopsBuilder := oops.In("NewDashboard").With("uid", uid)

	raw, err := ds.GetDashboard(ctx, uid)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	doc, err := models.ParseDashboardDocument(raw)
	if err != nil {
		return nil, oopsBuilder.Hint("dashboard document is not valid JSON").Wrap(err)
	}

	root := doc.Dashboard
	switch {
	case root == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "dashboard"})
	case root.ID == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "dashboard.id"})
	case root.Title == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "dashboard.title"})
	case root.Time == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "dashboard.time"})
	}

	d := &Dashboard{
		UID:      uid,
		ID:       *root.ID,
		Title:    *root.Title,
		FromDate: root.Time.From,
		ToDate:   root.Time.To,
		DashVars: map[string]string{},
		index:    map[int64]int{},
	}
	if root.Templating != nil {
		for _, v := range root.Templating.List {
			d.DashVars[v.Name] = v.Current.Text.String()
		}
	}

	// The root is not a panel; walk its children level by level.
	queue := append([]models.PanelNode(nil), root.Panels...)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		panel, err := NewPanel(ctx, node, d.ID, ds, d.DashVars)
		if err != nil {
			return nil, oopsBuilder.Wrap(err)
		}
		if err := d.add(panel); err != nil {
			return nil, oopsBuilder.Wrap(err)
		}
		queue = append(queue, node.Panels...)
	}

	return d, nil
}

func (d *Dashboard) add(p *Panel) error {
	if _, ok := d.index[p.ID]; ok {
		return oops.With("panelID", p.ID).Wrap(ErrDuplicatePanel)
	}
	d.index[p.ID] = len(d.panels)
	d.panels = append(d.panels, p)
	return nil
}

// Panels returns the panels in layout order.
func (d *Dashboard) Panels() []*Panel {
	return d.panels
}

func (d *Dashboard) Panel(id int64) (*Panel, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.panels[i], true
}
