package ssr

// RenderBodyArgs is passed to plugins at the pre-body lifecycle point, once per
// page, before the body content is emitted.
type RenderBodyArgs struct {
	// Pathname is the page path relative to the site root, slash separated.
	Pathname string

	// SetPreBodyComponents queues components to be placed before the body
	// content. Successive calls append.
	SetPreBodyComponents func(components []Component)
}

// PreRenderHTMLArgs is passed to plugins at the head lifecycle point, once per
// page, before the head is finalized.
type PreRenderHTMLArgs struct {
	Pathname string

	// GetHeadComponents returns the head components queued so far, in order.
	GetHeadComponents func() []Component

	// ReplaceHeadComponents replaces the full head component list.
	ReplaceHeadComponents func(components []Component)
}
