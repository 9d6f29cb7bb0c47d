package interactor

// Changes tracks which parts of the UI are stale. Flags accumulate until
// the renderer drains them with the Handle methods, once per frame.
type Changes struct {
	// layer is set by anything that alters the layer list: titles, locks,
	// visibility, ordering.
	layer bool

	// sprite is set by anything that requires a re-render of the canvas.
	sprite bool

	// selected is set by anything that alters the selection details panel.
	selected bool
}

func newChanges() Changes {
	return Changes{layer: true, sprite: true, selected: true}
}

func (c *Changes) allChange() {
	c.layer = true
	c.sprite = true
	c.selected = true
}

func (c *Changes) layerChange() {
	c.layer = true
}

func (c *Changes) layerChangeIf(changed bool) {
	c.layer = c.layer || changed
}

func (c *Changes) spriteChange() {
	c.sprite = true
}

func (c *Changes) spriteChangeIf(changed bool) {
	c.sprite = c.sprite || changed
}

func (c *Changes) selectedChange() {
	c.selected = true
}

func (c *Changes) spriteSelectedChange() {
	c.sprite = true
	c.selected = true
}

// HandleLayerChange reports and clears the layer flag.
func (c *Changes) HandleLayerChange() bool {
	ret := c.layer
	c.layer = false
	return ret
}

// HandleSpriteChange reports and clears the sprite flag.
func (c *Changes) HandleSpriteChange() bool {
	ret := c.sprite
	c.sprite = false
	return ret
}

// HandleSelectedChange reports and clears the selection flag.
func (c *Changes) HandleSelectedChange() bool {
	ret := c.selected
	c.selected = false
	return ret
}
