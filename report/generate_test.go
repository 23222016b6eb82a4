package report

import (
	"archive/tar"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)
}

func listFiles(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names
}

func TestGenerateDirectory(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()

	res, err := Generate(context.Background(), "abc", ds, Output{Dest: "/reports", Now: fixedNow}, Options{Fs: fs})
	require.NoError(t, err)

	dir := "/reports/Service_Overview_20240301-140509"
	assert.Equal(t, dir, res.Path)
	assert.False(t, res.SingleFile)
	assert.Equal(t, []string{
		"2_CPU_usage.png",
		"3_Memory_usage.png",
		"report.css",
		"report.html",
		"report.js",
	}, listFiles(t, fs, dir))

	html, err := afero.ReadFile(fs, filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, `<title>Service *Overview*</title>`)
	assert.Contains(t, page, `src="2_CPU_usage.png"`)
	assert.Contains(t, page, `src="3_Memory_usage.png"`)
	assert.Contains(t, page, `href="report.css"`)
	assert.Contains(t, page, `src="report.js"`)
	assert.NotContains(t, page, "data:image/png")
	assert.Less(t, strings.Index(page, "2_CPU_usage.png"), strings.Index(page, "3_Memory_usage.png"), "panels keep layout order")

	js, err := afero.ReadFile(fs, filepath.Join(dir, "report.js"))
	require.NoError(t, err)
	shipped, err := embedded.ReadFile("templates/classic/dashboard_template.js")
	require.NoError(t, err)
	assert.Equal(t, shipped, js, "script is copied verbatim")
}

func TestGenerateBase64(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()

	res, err := Generate(context.Background(), "abc", ds, Output{Dest: "/reports", Base64: true, Now: fixedNow}, Options{Fs: fs})
	require.NoError(t, err)

	assert.Equal(t, "/reports/Service Overview_20240301-140509.html", res.Path)
	assert.True(t, res.SingleFile)
	assert.Equal(t, []string{"Service Overview_20240301-140509.html"}, listFiles(t, fs, "/reports"))

	html, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	page := string(html)
	for _, id := range []int64{2, 3} {
		assert.Contains(t, page, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(fakePNG(id)))
	}
	assert.NotContains(t, page, `href="report.css"`)
	assert.Contains(t, page, ".panel.alerting", "stylesheet is inlined")
	assert.Contains(t, page, "DOMContentLoaded", "script is inlined")
}

func TestGenerateCurrentDirectory(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()

	res, err := Generate(context.Background(), "abc", ds, Output{Now: fixedNow}, Options{Fs: fs})
	require.NoError(t, err)
	assert.Equal(t, DefaultReportName, res.Path)

	for _, name := range []string{"report.html", "report.css", "report.js", "2_CPU_usage.png", "3_Memory_usage.png"} {
		exists, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}

func TestGenerateRefusesExistingDirectory(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/reports/Service_Overview_20240301-140509", 0o755))

	_, err := Generate(context.Background(), "abc", ds, Output{Dest: "/reports", Now: fixedNow}, Options{Fs: fs})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputExists))
	assert.Empty(t, ds.requestedPanels(), "nothing is fetched for a refused run")
}

func TestGenerateCompressed(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()

	res, err := Generate(context.Background(), "abc", ds, Output{Dest: "/reports", Compress: true, Now: fixedNow}, Options{Fs: fs})
	require.NoError(t, err)

	archive := "/reports/Service_Overview_20240301-140509.tar.xz"
	assert.Equal(t, archive, res.Path)
	assert.True(t, res.SingleFile)
	assert.Equal(t, []string{"Service_Overview_20240301-140509.tar.xz"}, listFiles(t, fs, "/reports"))

	f, err := fs.Open(archive)
	require.NoError(t, err)
	defer f.Close()
	xr, err := xz.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(xr)

	contents := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = data
	}
	prefix := "Service_Overview_20240301-140509/"
	assert.Len(t, contents, 5)
	assert.Equal(t, fakePNG(2), contents[prefix+"2_CPU_usage.png"])
	assert.Contains(t, contents, prefix+"report.html")
	assert.Contains(t, contents, prefix+"report.css")
	assert.Contains(t, contents, prefix+"report.js")
}

func TestGenerateUnknownTemplate(t *testing.T) {
	ds := newFakeSource(rowDashboard)

	_, err := Generate(context.Background(), "abc", ds, Output{Dest: "/reports", TemplateName: "nope", Now: fixedNow}, Options{Fs: afero.NewMemMapFs()})
	assert.Error(t, err)
}

func TestGenerateCustomTemplates(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()
	templates := fstest.MapFS{
		"plain/dashboard_template.html.tmpl": {Data: []byte(`{{range .Dashboard.Panels}}{{if not .IsRow}}[{{.ID}}:{{$.ImageSrc .}}]{{end}}{{end}}`)},
		"plain/dashboard_template.css.tmpl":  {Data: []byte(`/* {{.Dashboard.Title}} */`)},
		"plain/dashboard_template.js":        {Data: []byte(`// js`)},
	}

	res, err := Generate(context.Background(), "abc", ds, Output{Dest: "/r", Templates: templates, TemplateName: "plain", Now: fixedNow}, Options{Fs: fs})
	require.NoError(t, err)

	html, err := afero.ReadFile(fs, filepath.Join(res.Path, "report.html"))
	require.NoError(t, err)
	assert.Equal(t, "[2:2_CPU_usage.png][3:3_Memory_usage.png]", string(html))
	css, err := afero.ReadFile(fs, filepath.Join(res.Path, "report.css"))
	require.NoError(t, err)
	assert.Equal(t, "/* Service *Overview* */", string(css))
}

func TestGenerateDarkTemplate(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	fs := afero.NewMemMapFs()

	res, err := Generate(context.Background(), "abc", ds, Output{Dest: "/r", TemplateName: "dark", Now: fixedNow}, Options{Fs: fs})
	require.NoError(t, err)
	css, err := afero.ReadFile(fs, filepath.Join(res.Path, "report.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "#111217")
}

func TestGenerateContinueOnErrorMarksPanel(t *testing.T) {
	ds := newFakeSource(rowDashboard)
	ds.fail[3] = true
	fs := afero.NewMemMapFs()

	res, err := Generate(context.Background(), "abc", ds, Output{Dest: "/r", Now: fixedNow}, Options{Fs: fs, ContinueOnError: true})
	require.NoError(t, err)

	html, err := afero.ReadFile(fs, filepath.Join(res.Path, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Image unavailable")
	assert.NotContains(t, string(html), "3_Memory_usage.png")
}

func TestReportNames(t *testing.T) {
	assert.Equal(t, "CPU  stats_20240301-140509.html", reportFileName(" *CPU* * stats ", "20240301-140509"))
	assert.Equal(t, "CPU__stats_20240301-140509", reportDirName(" *CPU* * stats ", "20240301-140509"))
	assert.Equal(t, "a_b_x", reportDirName("a/b", "x"))
	assert.Equal(t, "a_b_x.html", reportFileName("a\\b", "x"))
}
