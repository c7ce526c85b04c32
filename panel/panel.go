package panel

import (
	"fmt"
	"sync"
)

// Name identifies one of the six fixed wrap panels.
type Name string

const (
	Right    Name = "RIGHT"
	Left     Name = "LEFT"
	Back     Name = "BACK"
	TopFront Name = "TOP_FRONT"
	Front    Name = "FRONT"
	Lid      Name = "LID"
)

// Order returns the six panel names in canonical atlas order.
func Order() []Name {
	return []Name{Right, Left, Back, TopFront, Front, Lid}
}

// Valid reports whether n is one of the six fixed panel names.
func (n Name) Valid() bool {
	switch n {
	case Right, Left, Back, TopFront, Front, Lid:
		return true
	}
	return false
}

// Variant selects which fixed overlay asset a panel uses.
type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
)

// Layer is a positioned image on a panel. Geometry is always expressed in the
// panel's native pixel space, never in editor/display space. URI identifies
// the image for the ImageCache; a Layer is set or cleared as a whole.
type Layer struct {
	URI    string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Overlay references the fixed panel-specific decorative asset.
type Overlay struct {
	Enabled bool
	Variant Variant
}

// Panel is one wrap surface. Width/Height are the native template dimensions,
// fixed at construction and never derived from uploaded content.
type Panel struct {
	Name            Name
	Width           int
	Height          int
	BackgroundColor string // hex "#rrggbb", empty if unset
	BackgroundImage *Layer
	Logo            *Layer
	LogoOverlay     *Overlay
	ReferenceImage  string // generation guidance only, never composited
}

// Complete reports whether the panel can take part in a finalize: it needs a
// background color or a background image.
func (p *Panel) Complete() bool {
	return p != nil && (p.BackgroundColor != "" || p.BackgroundImage != nil)
}

func (p *Panel) clone() *Panel {
	if p == nil {
		return nil
	}
	cp := *p
	if p.BackgroundImage != nil {
		l := *p.BackgroundImage
		cp.BackgroundImage = &l
	}
	if p.Logo != nil {
		l := *p.Logo
		cp.Logo = &l
	}
	if p.LogoOverlay != nil {
		o := *p.LogoOverlay
		cp.LogoOverlay = &o
	}
	return &cp
}

// Patch is a partial update merged into one panel. Nil pointer fields are left
// untouched; the Remove flags clear a whole layer (layers are atomic, there is
// no way to set geometry without an image).
type Patch struct {
	BackgroundColor  *string
	BackgroundImage  *Layer
	RemoveBackground bool
	Logo             *Layer
	RemoveLogo       bool
	LogoOverlay      *Overlay
	ReferenceImage   *string
}

// Set holds the six panels. Exactly six exist for the lifetime of the set,
// keyed by fixed name; template sizes are read-only after construction.
//
// RIGHT is the linking master and LEFT the slave for the "sides" relationship.
// While Linked is true, a content edit (not a pure geometry move) on RIGHT
// copies the linkable fields onto LEFT. The copy is one-shot: re-enabling
// linking does not resync until the master changes again.
type Set struct {
	mu     sync.Mutex
	panels map[Name]*Panel
	linked bool
}

// NewSet builds the six panels from the embedded template table.
func NewSet() (*Set, error) {
	tmpls, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s := &Set{panels: make(map[Name]*Panel, len(tmpls))}
	for _, t := range tmpls {
		s.panels[t.Name] = &Panel{Name: t.Name, Width: t.Width, Height: t.Height}
	}
	for _, n := range Order() {
		if _, ok := s.panels[n]; !ok {
			return nil, fmt.Errorf("panel set: template table missing %s", n)
		}
	}
	return s, nil
}

// SetLinked toggles the sides-linking relationship. Toggling alone never
// copies anything; only the next master content edit does.
func (s *Set) SetLinked(on bool) {
	s.mu.Lock()
	s.linked = on
	s.mu.Unlock()
}

// Linked reports whether sides linking is active.
func (s *Set) Linked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked
}

// Get returns a copy of the named panel.
func (s *Set) Get(name Name) (Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[name]
	if !ok {
		return Panel{}, fmt.Errorf("panel set: unknown panel %q", name)
	}
	return *p.clone(), nil
}

// Snapshot returns copies of all six panels keyed by name.
func (s *Set) Snapshot() map[Name]Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Name]Panel, len(s.panels))
	for n, p := range s.panels {
		out[n] = *p.clone()
	}
	return out
}

// Update merges patch into the named panel. If the panel is the linking
// master, linking is active, and the patch changed the panel's content
// fingerprint (new image, new color, new logo, not a bare geometry drag),
// the linkable fields are copied onto the slave. Returns whether the slave
// was written.
func (s *Set) Update(name Name, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[name]
	if !ok {
		return false, fmt.Errorf("panel set: unknown panel %q", name)
	}

	before := ContentFingerprint(p)
	applyPatch(p, patch)
	after := ContentFingerprint(p)

	if name != Right || !s.linked || before == after {
		return false, nil
	}
	slave := s.panels[Left]
	slave.BackgroundColor = p.BackgroundColor
	slave.BackgroundImage = nil
	if p.BackgroundImage != nil {
		l := *p.BackgroundImage
		slave.BackgroundImage = &l
	}
	slave.Logo = nil
	if p.Logo != nil {
		l := *p.Logo
		slave.Logo = &l
	}
	return true, nil
}

// Replace overwrites the content layers of every panel from src, keeping the
// native template sizes. Used when slicing an imported atlas back into panels.
func (s *Set) Replace(src map[Name]Panel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, p := range s.panels {
		in, ok := src[n]
		if !ok {
			continue
		}
		p.BackgroundColor = in.BackgroundColor
		p.BackgroundImage = nil
		if in.BackgroundImage != nil {
			l := *in.BackgroundImage
			p.BackgroundImage = &l
		}
		p.Logo = nil
		if in.Logo != nil {
			l := *in.Logo
			p.Logo = &l
		}
		p.LogoOverlay = nil
		if in.LogoOverlay != nil {
			o := *in.LogoOverlay
			p.LogoOverlay = &o
		}
		p.ReferenceImage = in.ReferenceImage
	}
}

// AllComplete reports whether every panel passes Complete. Finalize gates on it.
func (s *Set) AllComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.panels {
		if !p.Complete() {
			return false
		}
	}
	return true
}

func applyPatch(p *Panel, patch Patch) {
	if patch.BackgroundColor != nil {
		p.BackgroundColor = *patch.BackgroundColor
	}
	if patch.RemoveBackground {
		p.BackgroundImage = nil
	} else if patch.BackgroundImage != nil {
		l := *patch.BackgroundImage
		p.BackgroundImage = &l
	}
	if patch.RemoveLogo {
		p.Logo = nil
	} else if patch.Logo != nil {
		l := *patch.Logo
		p.Logo = &l
	}
	if patch.LogoOverlay != nil {
		o := *patch.LogoOverlay
		p.LogoOverlay = &o
	}
	if patch.ReferenceImage != nil {
		p.ReferenceImage = *patch.ReferenceImage
	}
}
