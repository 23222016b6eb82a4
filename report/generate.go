package report

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/afero"
)

const (
	DefaultReportName = "report.html"
	timestampLayout   = "20060102-150405"
)

// Output describes where and in which shape a report is written.
type Output struct {
	// Dest is the parent directory. Empty writes report.html and its
	// companions to the current directory.
	Dest string
	// Base64 produces a single HTML document with inline images.
	Base64 bool
	// Compress archives the report directory to a .tar.xz and removes it.
	// Ignored in base64 mode and without Dest.
	Compress bool

	Templates    fs.FS
	TemplateName string

	// Now stamps report names. Defaults to time.Now.
	Now func() time.Time
}

// Result points at what was produced.
type Result struct {
	// Path is the report file, the report directory, or the archive.
	Path string
	// SingleFile is true when Path is one self-contained file.
	SingleFile bool
	Dashboard  *Dashboard
}

// Generate builds the report for the dashboard uid.
func Generate(ctx context.Context, uid string, ds DataSource, out Output, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.WithPrefix("report").With("uid", uid)
	oopsBuilder := oops.In("Generate").With("uid", uid).With("dest", out.Dest)

	now := time.Now
	if out.Now != nil {
		now = out.Now
	}

	dash, err := NewDashboard(ctx, uid, ds)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	logger.Info("Dashboard loaded", "title", dash.Title, "panels", len(dash.Panels()))

	render := func(dir, name string) error {
		return dash.Render(ctx, dir, name, out.Templates, out.TemplateName, out.Base64, ds, opts)
	}

	if out.Dest == "" {
		if err := render(".", DefaultReportName); err != nil {
			return nil, oopsBuilder.Wrap(err)
		}
		return &Result{Path: DefaultReportName, SingleFile: out.Base64, Dashboard: dash}, nil
	}

	if err := opts.Fs.MkdirAll(out.Dest, 0o755); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	stamp := now().Format(timestampLayout)

	if out.Base64 {
		name := reportFileName(dash.Title, stamp)
		if err := render(out.Dest, name); err != nil {
			return nil, oopsBuilder.Wrap(err)
		}
		return &Result{Path: filepath.Join(out.Dest, name), SingleFile: true, Dashboard: dash}, nil
	}

	dir := filepath.Join(out.Dest, reportDirName(dash.Title, stamp))
	exists, err := afero.Exists(opts.Fs, dir)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if exists {
		return nil, oopsBuilder.With("dir", dir).Wrap(ErrOutputExists)
	}
	if err := opts.Fs.Mkdir(dir, 0o755); err != nil {
		return nil, oopsBuilder.With("dir", dir).Wrap(err)
	}
	if err := render(dir, DefaultReportName); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if !out.Compress {
		return &Result{Path: dir, Dashboard: dash}, nil
	}

	archive := dir + archiveExt
	if err := archiveDir(opts.Fs, dir, archive); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if err := opts.Fs.RemoveAll(dir); err != nil {
		return nil, oopsBuilder.With("dir", dir).Wrap(err)
	}
	logger.Info("Report archived", "archive", archive)
	return &Result{Path: archive, SingleFile: true, Dashboard: dash}, nil
}

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

func reportFileName(title, stamp string) string {
	name := strings.TrimSpace(title) + "_" + stamp + ".html"
	return pathSeparators.Replace(strings.ReplaceAll(name, "*", ""))
}

func reportDirName(title, stamp string) string {
	name := strings.TrimSpace(strings.ReplaceAll(title, "*", ""))
	name = strings.ReplaceAll(name, " ", "_")
	return pathSeparators.Replace(name) + "_" + stamp
}
