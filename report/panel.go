package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/senpro-it/grafana-reporter/models"
)

const (
	// RowType marks layout containers. Rows never have an image.
	RowType = "row"

	// Grafana's grid unit rendered in pixels.
	pixelsPerGridUnit = 75
)

// DataSource is the part of the Grafana API the report is built from.
type DataSource interface {
	GetDashboard(ctx context.Context, uid string) ([]byte, error)
	GetAlertsByDashboardAndPanel(ctx context.Context, dashboardID, panelID int64) ([]models.Alert, error)
	GetImagePanel(ctx context.Context, dashboardUID string, panelID int64, fromDate, toDate string, width, height int) ([]byte, error)
}

// Panel is one element of a dashboard. It is immutable once built.
type Panel struct {
	ID         int64
	Title      string
	Type       string
	ColPos     int
	ColWidth   int
	Height     int
	Alerts     []models.Alert
	ScopedVars map[string]models.VarSelection

	vars Variables
}

// NewPanel builds a panel from its node in the dashboard document, fetching
// its alerts and resolving variables in its title.
func NewPanel(ctx context.Context, node models.PanelNode, dashboardID int64, ds DataSource, dashVars map[string]string) (*Panel, error) {
	oopsBuilder := oops.In("NewPanel").With("dashboardID", dashboardID)

	if node.ID == nil {
		return nil, oopsBuilder.Wrap(&ParseError{Field: "id"})
	}
	id := *node.ID
	oopsBuilder = oopsBuilder.With("panelID", id)
	switch {
	case node.Title == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "title", PanelID: id})
	case node.Type == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "type", PanelID: id})
	case node.GridPos == nil:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "gridPos", PanelID: id})
	case node.GridPos.W <= 0:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "gridPos.w", PanelID: id})
	case node.GridPos.H <= 0:
		return nil, oopsBuilder.Wrap(&ParseError{Field: "gridPos.h", PanelID: id})
	}

	alerts, err := ds.GetAlertsByDashboardAndPanel(ctx, dashboardID, id)
	if err != nil {
		return nil, oopsBuilder.Hint("fetching alerts").Wrap(err)
	}

	scoped := node.ScopedVars
	if scoped == nil {
		scoped = map[string]models.VarSelection{}
	}
	p := &Panel{
		ID:         id,
		Type:       *node.Type,
		ColPos:     node.GridPos.X + 1,
		ColWidth:   node.GridPos.W,
		Height:     node.GridPos.H,
		Alerts:     alerts,
		ScopedVars: scoped,
		vars:       Variables{Dashboard: dashVars, Scoped: scoped},
	}

	title, err := p.vars.Substitute(*node.Title)
	if err != nil {
		return nil, oopsBuilder.
			With("title", *node.Title).
			Hint("check the dashboard templating variables").
			Wrap(err)
	}
	p.Title = title

	return p, nil
}

// IsRow reports whether the panel is a layout container.
func (p *Panel) IsRow() bool {
	return p.Type == RowType
}

// IsAlerting is true when any alert on the panel is in the "alerting" state.
func (p *Panel) IsAlerting() bool {
	for _, a := range p.Alerts {
		if a.State == models.AlertStateAlerting {
			return true
		}
	}
	return false
}

// ImageFilename is a filesystem safe name for the panel's PNG.
func (p *Panel) ImageFilename() string {
	return fmt.Sprintf("%d_%s.png", p.ID, strings.TrimSpace(nonWord.ReplaceAllString(p.Title, "_")))
}

// Width and height in pixels of the rendered image.
func (p *Panel) ImageSize() (int, int) {
	return pixelsPerGridUnit * p.ColWidth, pixelsPerGridUnit * p.Height
}

// RenderImage asks the data source for the panel as a PNG.
func (p *Panel) RenderImage(ctx context.Context, fromDate, toDate, dashboardUID string, ds DataSource) ([]byte, error) {
	if p.IsRow() {
		return nil, oops.In("RenderImage").With("panelID", p.ID).Wrap(ErrRowPanel)
	}
	width, height := p.ImageSize()
	img, err := ds.GetImagePanel(ctx, dashboardUID, p.ID, fromDate, toDate, width, height)
	if err != nil {
		return nil, oops.
			In("RenderImage").
			With("panelID", p.ID).
			With("dashboardUID", dashboardUID).
			Wrap(err)
	}
	return img, nil
}

// RenderImageBase64 is RenderImage with the PNG base64 encoded.
func (p *Panel) RenderImageBase64(ctx context.Context, fromDate, toDate, dashboardUID string, ds DataSource) ([]byte, error) {
	img, err := p.RenderImage(ctx, fromDate, toDate, dashboardUID, ds)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(img)))
	base64.StdEncoding.Encode(out, img)
	return out, nil
}
