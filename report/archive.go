package report

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

const archiveExt = ".tar.xz"

// archiveDir packs dir into a tar.xz at target. Entries are stored under the
// directory's base name.
func archiveDir(fs afero.Fs, dir, target string) (err error) {
	oopsBuilder := oops.In("archiveDir").With("dir", dir).With("target", target)

	f, err := fs.Create(target)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = oopsBuilder.Wrap(cerr)
		}
	}()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	tw := tar.NewWriter(xw)

	base := filepath.Base(dir)
	walkErr := afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		src, err := fs.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		return oopsBuilder.Wrap(walkErr)
	}

	if err := tw.Close(); err != nil {
		return oopsBuilder.Wrap(err)
	}
	if err := xw.Close(); err != nil {
		return oopsBuilder.Wrap(err)
	}
	return nil
}
