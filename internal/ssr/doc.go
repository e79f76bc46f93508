// Package ssr models the page lifecycle contract a static-site renderer offers
// its plugins: components queued for the document, the pre-body and head
// lifecycle points, and the path-prefixing helper used to resolve asset URLs.
//
// Components wrap parsed golang.org/x/net/html nodes so that elements produced
// by plugins and elements already present in generated pages share one
// representation and render through the same code path.
package ssr
