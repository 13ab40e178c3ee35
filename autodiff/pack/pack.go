// Package pack writes rendered reports into a tar archive.
package pack

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/xml"
)

// Page is a single file of an archive.
type Page struct {
	Path     string // slash separated, relative to the archive root
	MimeType string
	Data     []byte
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^application/(.+\+)?json$`), json.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`[/+]xml$`), xml.Minify)
	return m
}

// Pack writes pages into a new tar file, replacing any existing file.
func Pack(filename string, pages []Page) error {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	if err := Write(file, pages); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Write writes pages as a tar archive to w. HTML, CSS, JSON and XML pages are minified, all
// other pages are written as they are.
func Write(w io.Writer, pages []Page) error {
	minifier := newMinifier()
	tw := tar.NewWriter(w)
	dirs := make(map[string]bool)

	for _, p := range pages {
		mt, _, err := mime.ParseMediaType(p.MimeType)
		if err != nil {
			return fmt.Errorf("invalid mime type of %s: %w", p.Path, err)
		}

		b, err := minifier.Bytes(mt, p.Data)
		switch {
		case errors.Is(err, minify.ErrNotExist):
			b = p.Data
		case err != nil:
			return fmt.Errorf("minifying %s: %w", p.Path, err)
		}

		name := strings.TrimPrefix(path.Clean("/"+p.Path), "/")
		if dir := path.Dir(name); dir != "." && !dirs[dir] {
			hdr := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     "./" + dir + "/",
				Mode:     0755,
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}
			dirs[dir] = true
		}

		hdr := &tar.Header{
			Name: "./" + name,
			Mode: 0644,
			Size: int64(len(b)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		if _, err := tw.Write(b); err != nil {
			return fmt.Errorf("writing body: %w", err)
		}
	}
	return tw.Close()
}
