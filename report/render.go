package report

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"path"
	"path/filepath"
	texttemplate "text/template"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/afero"
)

const (
	DefaultTemplate = "classic"

	htmlTemplateFile = "dashboard_template.html.tmpl"
	cssTemplateFile  = "dashboard_template.css.tmpl"
	jsTemplateFile   = "dashboard_template.js"

	cssOutputFile = "report.css"
	jsOutputFile  = "report.js"
)

//go:embed templates
var embedded embed.FS

// DefaultTemplates returns the template sets shipped with the binary.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateContext is what the HTML template is executed with.
type TemplateContext struct {
	Dashboard       *Dashboard
	CSSTemplatePath string
	JSTemplatePath  string
	IsBase64        bool
	Base64Images    map[int64]string
	Failed          map[int64]error
	GeneratedAt     time.Time

	// Only set in base64 mode, where the document must stand alone.
	InlineCSS template.CSS
	InlineJS  template.JS
}

// ImageSrc is the src attribute for a panel image.
func (c *TemplateContext) ImageSrc(p *Panel) template.URL {
	if c.IsBase64 {
		return template.URL("data:image/png;base64," + c.Base64Images[p.ID])
	}
	return template.URL(p.ImageFilename())
}

func (c *TemplateContext) ImageFailed(p *Panel) bool {
	_, ok := c.Failed[p.ID]
	return ok
}

// Render fetches the panel images and writes the report to path/reportName.
// Outside base64 mode report.css and report.js are written next to it.
func (d *Dashboard) Render(ctx context.Context, outPath, reportName string, templates fs.FS, templateName string, isBase64 bool, ds DataSource, opts Options) error {
	opts = opts.withDefaults()
	logger := opts.Logger.WithPrefix("render").With("dashboard", d.UID)
	oopsBuilder := oops.
		In("Render").
		With("uid", d.UID).
		With("path", outPath).
		With("template", templateName)

	if templates == nil {
		templates = DefaultTemplates()
	}
	if templateName == "" {
		templateName = DefaultTemplate
	}

	images, err := d.AcquireImages(ctx, outPath, ds, isBase64, opts)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}

	tctx := &TemplateContext{
		Dashboard:       d,
		CSSTemplatePath: path.Join(templateName, cssTemplateFile),
		JSTemplatePath:  path.Join(templateName, jsTemplateFile),
		IsBase64:        isBase64,
		Base64Images:    images.Base64,
		Failed:          images.Failed,
		GeneratedAt:     time.Now(),
	}

	css, err := renderCSS(templates, tctx.CSSTemplatePath, d)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	js, err := fs.ReadFile(templates, tctx.JSTemplatePath)
	if err != nil {
		return oopsBuilder.Hint("missing script template").Wrap(err)
	}
	if isBase64 {
		tctx.InlineCSS = template.CSS(css)
		tctx.InlineJS = template.JS(js)
	}

	htmlPath := path.Join(templateName, htmlTemplateFile)
	tmpl, err := template.New(path.Base(htmlPath)).ParseFS(templates, htmlPath)
	if err != nil {
		return oopsBuilder.Hint("unknown or broken template").Wrap(err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, tctx); err != nil {
		return oopsBuilder.Wrap(err)
	}

	reportFile := filepath.Join(outPath, reportName)
	if err := afero.WriteFile(opts.Fs, reportFile, out.Bytes(), 0o644); err != nil {
		return oopsBuilder.With("file", reportFile).Wrap(err)
	}
	logger.Info("Report written", "file", reportFile)

	if isBase64 {
		return nil
	}
	if err := afero.WriteFile(opts.Fs, filepath.Join(outPath, cssOutputFile), css, 0o644); err != nil {
		return oopsBuilder.With("file", cssOutputFile).Wrap(err)
	}
	if err := afero.WriteFile(opts.Fs, filepath.Join(outPath, jsOutputFile), js, 0o644); err != nil {
		return oopsBuilder.With("file", jsOutputFile).Wrap(err)
	}
	return nil
}

func renderCSS(templates fs.FS, name string, d *Dashboard) ([]byte, error) {
	tmpl, err := texttemplate.New(path.Base(name)).ParseFS(templates, name)
	if err != nil {
		return nil, oops.In("renderCSS").With("template", name).Wrap(err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, map[string]any{"Dashboard": d}); err != nil {
		return nil, oops.In("renderCSS").With("template", name).Wrap(err)
	}
	return out.Bytes(), nil
}
