package report

import (
	"context"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// Images is the outcome of fetching every panel image of a dashboard.
type Images struct {
	// Base64 maps panel ids to base64 PNGs. Only filled in base64 mode.
	Base64 map[int64]string
	// Failed holds the panels whose image could not be produced. It is only
	// ever non-empty with Options.ContinueOnError.
	Failed map[int64]error
}

type imageResult struct {
	panelID int64
	data    []byte
	err     error
}

// AcquireImages fetches the image of every non-row panel with a bounded
// number of workers. In file mode each PNG is written to path; in base64 mode
// the encoded images are returned instead.
func (d *Dashboard) AcquireImages(ctx context.Context, path string, ds DataSource, isBase64 bool, opts Options) (*Images, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.WithPrefix("images").With("dashboard", d.UID)
	oopsBuilder := oops.In("AcquireImages").With("uid", d.UID).With("path", path)

	targets := lo.Filter(d.panels, func(p *Panel, _ int) bool {
		return !p.IsRow()
	})
	logger.Debug("Fetching panel images", "panels", len(targets), "workers", opts.Workers, "base64", isBase64)

	// One slot per task; merged below once every worker has returned.
	results := make([]imageResult, len(targets))

	p := pool.New().WithMaxGoroutines(opts.Workers).WithContext(ctx)
	if !opts.ContinueOnError {
		p = p.WithCancelOnError().WithFirstError()
	}
	for i, panel := range targets {
		i, panel := i, panel
		p.Go(func(ctx context.Context) error {
			data, err := d.acquireImage(ctx, panel, path, ds, isBase64, opts.Fs)
			results[i] = imageResult{panelID: panel.ID, data: data, err: err}
			if err != nil && opts.ContinueOnError {
				logger.Warn("Panel image failed", "panel", panel.ID, "title", panel.Title, "error", err)
				return nil
			}
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}

	images := &Images{Failed: map[int64]error{}}
	if isBase64 {
		images.Base64 = make(map[int64]string, len(results))
	}
	for _, r := range results {
		if r.err != nil {
			images.Failed[r.panelID] = r.err
			continue
		}
		if isBase64 {
			images.Base64[r.panelID] = string(r.data)
		}
	}
	logger.Info("Panel images ready", "ok", len(targets)-len(images.Failed), "failed", len(images.Failed))
	return images, nil
}

// acquireImage does one round trip and, in file mode, one write.
func (d *Dashboard) acquireImage(ctx context.Context, p *Panel, path string, ds DataSource, isBase64 bool, fs afero.Fs) ([]byte, error) {
	if isBase64 {
		return p.RenderImageBase64(ctx, d.FromDate, d.ToDate, d.UID, ds)
	}
	img, err := p.RenderImage(ctx, d.FromDate, d.ToDate, d.UID, ds)
	if err != nil {
		return nil, err
	}
	target := filepath.Join(path, p.ImageFilename())
	if err := afero.WriteFile(fs, target, img, 0o644); err != nil {
		return nil, oops.In("acquireImage").With("file", target).Wrap(err)
	}
	return nil, nil
}
