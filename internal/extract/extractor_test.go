package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextPlainPassthrough(t *testing.T) {
	e := New()
	text, err := e.Text(context.Background(), []byte("The sky is blue."), "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", text)
}

func TestTextUnknownTypeTreatedAsPlainText(t *testing.T) {
	e := New()
	text, err := e.Text(context.Background(), []byte("raw bytes as text"), "data.bin", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "raw bytes as text", text)
}

func TestTextEmptyInputFails(t *testing.T) {
	e := New()
	_, err := e.Text(context.Background(), []byte("   \n\t "), "empty.txt", "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestTextDocx(t *testing.T) {
	e := New()
	data := buildDocx(t, `<w:document><w:body>`+
		`<w:p><w:r><w:t>Hello docx world.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>`+
		`</w:body></w:document>`)

	text, err := e.Text(context.Background(), data, "report.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello docx world.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestTextDocxWithoutDocumentXMLFails(t *testing.T) {
	e := New()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<nope/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = e.Text(context.Background(), buf.Bytes(), "bad.docx", "")
	require.Error(t, err)
}

func TestTextDocxCorruptContainerFails(t *testing.T) {
	e := New()
	_, err := e.Text(context.Background(), []byte("not a zip"), "broken.docx", "")
	require.Error(t, err)
}

func TestStripTags(t *testing.T) {
	out := stripTags("<a>first</a><b>second</b>")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "<")
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
