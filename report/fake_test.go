package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/senpro-it/grafana-reporter/models"
)

var errBoom = errors.New("boom")

type imageRequest struct {
	DashboardUID string
	PanelID      int64
	From, To     string
	Width        int
	Height       int
}

// fakeSource serves a fixed dashboard and synthesizes a PNG per panel.
type fakeSource struct {
	dashboard string
	alerts    map[int64][]models.Alert
	fail      map[int64]bool
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu         sync.Mutex
	alertCalls [][2]int64
	images     []imageRequest
}

func newFakeSource(dashboard string) *fakeSource {
	return &fakeSource{
		dashboard: dashboard,
		alerts:    map[int64][]models.Alert{},
		fail:      map[int64]bool{},
	}
}

func fakePNG(panelID int64) []byte {
	return []byte(fmt.Sprintf("\x89PNG\r\n\x1a\npanel-%d", panelID))
}

func (f *fakeSource) GetDashboard(_ context.Context, uid string) ([]byte, error) {
	if f.dashboard == "" {
		return nil, fmt.Errorf("dashboard %s: %w", uid, errBoom)
	}
	return []byte(f.dashboard), nil
}

func (f *fakeSource) GetAlertsByDashboardAndPanel(_ context.Context, dashboardID, panelID int64) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertCalls = append(f.alertCalls, [2]int64{dashboardID, panelID})
	return f.alerts[panelID], nil
}

func (f *fakeSource) GetImagePanel(ctx context.Context, dashboardUID string, panelID int64, fromDate, toDate string, width, height int) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.images = append(f.images, imageRequest{
		DashboardUID: dashboardUID,
		PanelID:      panelID,
		From:         fromDate,
		To:           toDate,
		Width:        width,
		Height:       height,
	})
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[panelID] {
		return nil, errBoom
	}
	return fakePNG(panelID), nil
}

func (f *fakeSource) requestedPanels() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.images))
	for _, r := range f.images {
		ids = append(ids, r.PanelID)
	}
	return ids
}

// End-to-end fixture: one row holding two graphs.
const rowDashboard = `{
  "dashboard": {
    "id": 42,
    "uid": "abc",
    "title": "Service *Overview*",
    "time": {"from": "now-6h", "to": "now"},
    "templating": {"list": []},
    "panels": [
      {
        "id": 1, "title": "Row", "type": "row",
        "gridPos": {"x": 0, "y": 0, "w": 24, "h": 1},
        "panels": [
          {"id": 2, "title": "CPU usage", "type": "graph", "gridPos": {"x": 0, "y": 1, "w": 4, "h": 3}},
          {"id": 3, "title": "Memory / usage", "type": "graph", "gridPos": {"x": 4, "y": 1, "w": 4, "h": 3}}
        ]
      }
    ]
  }
}`

// manyPanelsDashboard returns a dashboard with n graphs and one row.
func manyPanelsDashboard(n int) string {
	panels := `{"id": 1000, "title": "Row", "type": "row", "gridPos": {"x": 0, "y": 0, "w": 24, "h": 1}}`
	for i := 1; i <= n; i++ {
		panels += fmt.Sprintf(`, {"id": %d, "title": "Panel %d", "type": "graph", "gridPos": {"x": 0, "y": %d, "w": 6, "h": 4}}`, i, i, i)
	}
	return fmt.Sprintf(`{"dashboard": {"id": 7, "title": "Many", "time": {"from": "now-1h", "to": "now"}, "templating": {"list": []}, "panels": [%s]}}`, panels)
}
