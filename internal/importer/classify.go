package importer

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedType is the per-file failure for unknown MIME types.
var ErrUnsupportedType = errors.New("Unsupported file type")

// Kind is the family a candidate file belongs to.
type Kind int

const (
	KindUnsupported Kind = iota
	KindBook
	KindArchive
)

var bookTypes = map[string]bool{
	"application/epub+zip": true,
}

var archiveTypes = map[string]bool{
	"application/zip":               true,
	"application/x-zip-compressed":  true,
	"application/vnd.comicbook+zip": true,
}

// Classify decides the family of f from its declared MIME type. Files that
// declare no type are sniffed from their content.
func Classify(f File) Kind {
	mt := baseType(f.MIMEType)
	if mt == "" && len(f.Data) > 0 {
		mt = baseType(mimetype.Detect(f.Data).String())
	}

	switch {
	case bookTypes[mt]:
		return KindBook
	case archiveTypes[mt]:
		return KindArchive
	default:
		return KindUnsupported
	}
}

func baseType(mt string) string {
	base, _, _ := strings.Cut(mt, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
