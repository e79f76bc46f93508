package headinject

import "fmt"

// StrikeThroughCSS draws a slanted line across elements with the
// strikeThrough class, colored by the theme's danger color.
const StrikeThroughCSS = `.strikeThrough::after{content:"";position:absolute;height:0.15em;background:var(--theme-ui-colors-danger);margin:auto;margin-top:0.65em;-webkit-transform:rotate(-3deg);-moz-transform:rotate(-3deg);-ms-transform:rotate(-3deg);transform:rotate(-3deg);inset:0;}`

// FontFaceCSS declares the normal and italic faces of a woff2 font family.
func FontFaceCSS(family, normalURL, italicURL string) string {
	return fmt.Sprintf(
		"@font-face{font-family:'%[1]s';font-style:normal;src:url(%[2]s) format('woff2');}"+
			"@font-face{font-family:'%[1]s';font-style:italic;src:url(%[3]s) format('woff2');}",
		family, normalURL, italicURL,
	)
}
