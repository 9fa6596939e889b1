package xmlnode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?>
<root xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <item>
    <dc:title>First &amp; Best</dc:title>
    <dc:identifier rdf:datatype="http://ndl.go.jp/dcndl/terms/ISBN">978-4-7981-5757-3</dc:identifier>
  </item>
  <item>
    <dc:title><rdf:Description><rdf:value>Nested</rdf:value></rdf:Description></dc:title>
  </item>
</root>`

const (
	dcNS  = "http://purl.org/dc/elements/1.1/"
	rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

func TestParse_FindAll(t *testing.T) {
	root, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "root", root.Name.Local)

	items := root.FindAll(AnySpace, "item")
	require.Len(t, items, 2)

	titles := root.FindAll(dcNS, "title")
	require.Len(t, titles, 2)
	assert.Equal(t, "First & Best", titles[0].Content())
	assert.Equal(t, "Nested", titles[1].Content())
	assert.NotNil(t, titles[1].Find(rdfNS, "value"))

	assert.Empty(t, root.FindAll("urn:other", "title"))
}

func TestAttrValue(t *testing.T) {
	root, err := ParseBytes([]byte(doc))
	require.NoError(t, err)
	id := root.Find(dcNS, "identifier")
	require.NotNil(t, id)
	assert.Equal(t, "http://ndl.go.jp/dcndl/terms/ISBN", id.AttrValue(rdfNS, "datatype"))
	assert.Equal(t, "http://ndl.go.jp/dcndl/terms/ISBN", id.AttrValue(AnySpace, "datatype"))
	assert.Equal(t, "", id.AttrValue(dcNS, "datatype"))
	assert.Equal(t, "item", id.Parent.Name.Local)
}

func TestChild(t *testing.T) {
	root, err := ParseBytes([]byte(doc))
	require.NoError(t, err)
	assert.NotNil(t, root.Child(AnySpace, "item"))
	assert.Nil(t, root.Child(dcNS, "title"))
	var n *Node
	assert.Nil(t, n.Child(AnySpace, "x"))
	assert.Equal(t, "", n.Content())
}

func TestParse_Charset(t *testing.T) {
	// "本" in Shift_JIS is 0x96 0x7B.
	raw := append([]byte(`<?xml version="1.0" encoding="Shift_JIS"?><t>`), 0x96, 0x7b)
	raw = append(raw, []byte(`</t>`)...)
	root, err := ParseBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "本", root.Content())
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader("   "))
	assert.ErrorIs(t, err, ErrEmpty)
}
