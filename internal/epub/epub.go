// Package epub extracts the metadata the library needs from an EPUB file:
// title, author and cover image.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/bookwith/reader-core/internal/domain"
)

// Errors returned by Parse.
var (
	ErrNotEPUB        = errors.New("not an epub archive")
	ErrMissingPackage = errors.New("epub package document not found")
)

// maxEntrySize bounds how much of a single archive entry is read.
const maxEntrySize = 32 << 20

type container struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Metadata struct {
		Titles   []string `xml:"title"`
		Creators []string `xml:"creator"`
		Metas    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Parser implements the importer's parse capability for EPUB files.
type Parser struct{}

// Parse reads title, author and cover from an EPUB held in memory.
func (Parser) Parse(name string, data []byte) (domain.BookMetadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.BookMetadata{}, fmt.Errorf("%w: %s: %v", ErrNotEPUB, name, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var c container
	if err := decodeXML(files, "META-INF/container.xml", &c); err != nil {
		return domain.BookMetadata{}, err
	}
	opfPath := ""
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" {
			opfPath = rf.FullPath
			break
		}
	}
	if opfPath == "" {
		return domain.BookMetadata{}, ErrMissingPackage
	}

	var pkg packageDoc
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return domain.BookMetadata{}, err
	}

	meta := domain.BookMetadata{
		Title:  first(pkg.Metadata.Titles),
		Author: first(pkg.Metadata.Creators),
	}

	if item, ok := coverItem(pkg); ok {
		href, err := url.PathUnescape(item.Href)
		if err != nil {
			href = item.Href
		}
		coverPath := path.Join(path.Dir(opfPath), href)
		if cover, err := readEntry(files, coverPath); err == nil {
			meta.Cover = cover
			meta.CoverMIME = item.MediaType
		}
	}

	return meta, nil
}

// coverItem finds the cover via EPUB3 properties or the EPUB2 meta tag.
func coverItem(pkg packageDoc) (manifestItem, bool) {
	for _, item := range pkg.Manifest.Items {
		for _, p := range strings.Fields(item.Properties) {
			if p == "cover-image" {
				return item, true
			}
		}
	}

	coverID := ""
	for _, m := range pkg.Metadata.Metas {
		if m.Name == "cover" {
			coverID = m.Content
			break
		}
	}
	if coverID == "" {
		return manifestItem{}, false
	}
	for _, item := range pkg.Manifest.Items {
		if item.ID == coverID {
			return item, true
		}
	}
	return manifestItem{}, false
}

func decodeXML(files map[string]*zip.File, name string, v interface{}) error {
	raw, err := readEntry(files, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func readEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingPackage, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntrySize))
}

func first(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
