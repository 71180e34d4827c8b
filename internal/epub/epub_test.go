package epub

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEPUB assembles a minimal archive from name/content pairs.
func buildEPUB(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func TestParseEPUB3(t *testing.T) {
	data := buildEPUB(t, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Dune</dc:title>
    <dc:creator>Frank Herbert</dc:creator>
  </metadata>
  <manifest>
    <item id="c" href="images/cover%20art.jpg" media-type="image/jpeg" properties="cover-image"/>
  </manifest>
</package>`,
		"OEBPS/images/cover art.jpg": "JPEGDATA",
	})

	meta, err := Parser{}.Parse("dune.epub", data)
	require.NoError(t, err)
	assert.Equal(t, "Dune", meta.Title)
	assert.Equal(t, "Frank Herbert", meta.Author)
	assert.Equal(t, []byte("JPEGDATA"), meta.Cover)
	assert.Equal(t, "image/jpeg", meta.CoverMIME)
}

func TestParseEPUB2CoverMeta(t *testing.T) {
	data := buildEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf": `<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title> </dc:title>
    <dc:title>Emma</dc:title>
    <meta name="cover" content="cov"/>
  </metadata>
  <manifest>
    <item id="cov" href="cover.png" media-type="image/png"/>
  </manifest>
</package>`,
		"OEBPS/cover.png": "PNGDATA",
	})

	meta, err := Parser{}.Parse("emma.epub", data)
	require.NoError(t, err)
	assert.Equal(t, "Emma", meta.Title)
	assert.Empty(t, meta.Author)
	assert.Equal(t, []byte("PNGDATA"), meta.Cover)
}

func TestParseErrors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := Parser{}.Parse("x.epub", []byte("plain text"))
		assert.ErrorIs(t, err, ErrNotEPUB)
	})

	t.Run("missing container", func(t *testing.T) {
		data := buildEPUB(t, map[string]string{"mimetype": "application/epub+zip"})
		_, err := Parser{}.Parse("x.epub", data)
		assert.ErrorIs(t, err, ErrMissingPackage)
	})

	t.Run("missing cover file is tolerated", func(t *testing.T) {
		data := buildEPUB(t, map[string]string{
			"META-INF/container.xml": containerXML,
			"OEBPS/content.opf": `<package><metadata><title>T</title></metadata>
<manifest><item id="c" href="gone.jpg" media-type="image/jpeg" properties="cover-image"/></manifest></package>`,
		})
		meta, err := Parser{}.Parse("x.epub", data)
		require.NoError(t, err)
		assert.Equal(t, "T", meta.Title)
		assert.Nil(t, meta.Cover)
	})
}
