package ssr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLink(t *testing.T) {
	c := Link("font-ml",
		Attr("rel", "preload"),
		Attr("href", "/fonts/a.woff2"),
		Attr("as", "font"),
		Attr("type", "font/woff2"),
		Attr("crossorigin", "anonymous"),
	)

	out, err := c.Render()
	require.NoError(t, err)
	assert.Equal(t, `<link rel="preload" href="/fonts/a.woff2" as="font" type="font/woff2" crossorigin="anonymous"/>`, out)
}

func TestRenderRawTextBodies(t *testing.T) {
	script := InlineScript("s", `if (a < b && c > d) { x("'") }`)
	out, err := script.Render()
	require.NoError(t, err)
	assert.Equal(t, `<script>if (a < b && c > d) { x("'") }</script>`, out)

	style := InlineStyle("st", `.a::after{content:"";}`)
	out, err = style.Render()
	require.NoError(t, err)
	assert.Equal(t, `<style>.a::after{content:"";}</style>`, out)
}

func TestRenderZeroComponent(t *testing.T) {
	_, err := Component{Key: "empty"}.Render()
	assert.Error(t, err)
}

func TestCloneIsDetached(t *testing.T) {
	orig := InlineStyle("st", "a{}")
	clone := orig.Clone()

	require.NotSame(t, orig.Node, clone.Node)
	require.NotSame(t, orig.Node.FirstChild, clone.Node.FirstChild)
	assert.Equal(t, orig.Key, clone.Key)

	clone.Node.Attr = append(clone.Node.Attr, Attr("media", "print"))
	assert.Empty(t, orig.Node.Attr)

	a, err := orig.Render()
	require.NoError(t, err)
	b, err := Component{Node: clone.Node}.Render()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRenderAll(t *testing.T) {
	out, err := RenderAll([]Component{
		InlineStyle("a", "a{}"),
		InlineScript("b", "1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "<style>a{}</style>\n<script>1</script>\n", out)
}
