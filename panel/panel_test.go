package panel

import "testing"

func strPtr(s string) *string {
	return &s
}

func TestNewSetTemplates(t *testing.T) {
	s, err := NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	want := map[Name][2]int{
		Right:    {2190, 1278},
		Left:     {2192, 1247},
		Back:     {2192, 1248},
		TopFront: {2192, 1248},
		Front:    {2192, 1013},
		Lid:      {2192, 2175},
	}
	snap := s.Snapshot()
	if len(snap) != 6 {
		t.Fatalf("expected 6 panels, got %d", len(snap))
	}
	for name, dims := range want {
		p, ok := snap[name]
		if !ok {
			t.Fatalf("missing panel %s", name)
		}
		if p.Width != dims[0] || p.Height != dims[1] {
			t.Fatalf("%s: got %dx%d, want %dx%d", name, p.Width, p.Height, dims[0], dims[1])
		}
	}
}

func TestUpdateLinking(t *testing.T) {
	tests := []struct {
		name        string
		linked      bool
		target      Name
		patch       Patch
		wantCopied  bool
		wantSlaveBG string
	}{
		{
			name:        "master_content_edit_copies_to_slave",
			linked:      true,
			target:      Right,
			patch:       Patch{BackgroundImage: &Layer{URI: "img://a", Width: 100, Height: 50}},
			wantCopied:  true,
			wantSlaveBG: "img://a",
		},
		{
			name:       "unlinked_master_edit_leaves_slave",
			linked:     false,
			target:     Right,
			patch:      Patch{BackgroundImage: &Layer{URI: "img://a"}},
			wantCopied: false,
		},
		{
			name:       "slave_edit_never_propagates",
			linked:     true,
			target:     Left,
			patch:      Patch{BackgroundImage: &Layer{URI: "img://b"}},
			wantCopied: false,
		},
		{
			name:       "color_edit_copies",
			linked:     true,
			target:     Right,
			patch:      Patch{BackgroundColor: strPtr("#ff0000")},
			wantCopied: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSet()
			if err != nil {
				t.Fatalf("NewSet: %v", err)
			}
			s.SetLinked(tc.linked)
			copied, err := s.Update(tc.target, tc.patch)
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if copied != tc.wantCopied {
				t.Fatalf("copied = %v, want %v", copied, tc.wantCopied)
			}
			if tc.wantSlaveBG != "" {
				left, _ := s.Get(Left)
				if left.BackgroundImage == nil || left.BackgroundImage.URI != tc.wantSlaveBG {
					t.Fatalf("slave background = %+v, want URI %s", left.BackgroundImage, tc.wantSlaveBG)
				}
			}
		})
	}
}

func TestLinkingFullFieldCopy(t *testing.T) {
	s, err := NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	s.SetLinked(true)

	_, err = s.Update(Right, Patch{
		BackgroundColor: strPtr("#112233"),
		BackgroundImage: &Layer{URI: "img://bg", X: 10, Y: 20, Width: 2190, Height: 1278},
		Logo:            &Layer{URI: "img://logo", X: 5, Y: 5, Width: 300, Height: 200},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	left, _ := s.Get(Left)
	right, _ := s.Get(Right)
	if left.BackgroundColor != right.BackgroundColor {
		t.Fatalf("slave color %q != master color %q", left.BackgroundColor, right.BackgroundColor)
	}
	if left.BackgroundImage == nil || *left.BackgroundImage != *right.BackgroundImage {
		t.Fatalf("slave background image not copied: %+v", left.BackgroundImage)
	}
	if left.Logo == nil || *left.Logo != *right.Logo {
		t.Fatalf("slave logo not copied: %+v", left.Logo)
	}
}

func TestGeometryOnlyEditDoesNotPropagate(t *testing.T) {
	s, err := NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	s.SetLinked(true)
	if _, err := s.Update(Right, Patch{BackgroundImage: &Layer{URI: "img://a", X: 0, Y: 0, Width: 100, Height: 100}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// a drag writes the same URI with new geometry
	copied, err := s.Update(Right, Patch{BackgroundImage: &Layer{URI: "img://a", X: 40, Y: 9, Width: 120, Height: 100}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if copied {
		t.Fatalf("geometry-only edit must not propagate to slave")
	}
}

func TestReenableLinkingDoesNotResync(t *testing.T) {
	s, err := NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	s.SetLinked(true)
	if _, err := s.Update(Right, Patch{BackgroundImage: &Layer{URI: "img://a"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s.SetLinked(false)
	if _, err := s.Update(Right, Patch{BackgroundImage: &Layer{URI: "img://b"}}); err != nil {
		t.Fatalf("unlinked edit: %v", err)
	}
	left, _ := s.Get(Left)
	if left.BackgroundImage == nil || left.BackgroundImage.URI != "img://a" {
		t.Fatalf("slave changed while unlinked: %+v", left.BackgroundImage)
	}

	// re-enabling alone must not resync
	s.SetLinked(true)
	left, _ = s.Get(Left)
	if left.BackgroundImage.URI != "img://a" {
		t.Fatalf("re-enabling linking resynced slave: %+v", left.BackgroundImage)
	}

	// the next master content edit resyncs
	if _, err := s.Update(Right, Patch{BackgroundImage: &Layer{URI: "img://c"}}); err != nil {
		t.Fatalf("relinked edit: %v", err)
	}
	left, _ = s.Get(Left)
	if left.BackgroundImage.URI != "img://c" {
		t.Fatalf("master edit after relink did not copy: %+v", left.BackgroundImage)
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		want  bool
	}{
		{"empty", Patch{}, false},
		{"color_only", Patch{BackgroundColor: strPtr("#ffffff")}, true},
		{"image_only", Patch{BackgroundImage: &Layer{URI: "img://a"}}, true},
		{"logo_only", Patch{Logo: &Layer{URI: "img://l"}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSet()
			if err != nil {
				t.Fatalf("NewSet: %v", err)
			}
			if _, err := s.Update(Front, tc.patch); err != nil {
				t.Fatalf("Update: %v", err)
			}
			p, _ := s.Get(Front)
			if p.Complete() != tc.want {
				t.Fatalf("Complete = %v, want %v", p.Complete(), tc.want)
			}
		})
	}
}

func TestFingerprints(t *testing.T) {
	a := &Panel{BackgroundColor: "#fff", BackgroundImage: &Layer{URI: "img://a", X: 1, Y: 2, Width: 3, Height: 4}}
	moved := &Panel{BackgroundColor: "#fff", BackgroundImage: &Layer{URI: "img://a", X: 9, Y: 9, Width: 3, Height: 4}}
	swapped := &Panel{BackgroundColor: "#fff", BackgroundImage: &Layer{URI: "img://b", X: 1, Y: 2, Width: 3, Height: 4}}

	if ContentFingerprint(a) != ContentFingerprint(moved) {
		t.Fatalf("moving a layer must not change the content fingerprint")
	}
	if ContentFingerprint(a) == ContentFingerprint(swapped) {
		t.Fatalf("new image URI must change the content fingerprint")
	}
	if GeometryFingerprint(a) == GeometryFingerprint(moved) {
		t.Fatalf("moving a layer must change the geometry fingerprint")
	}
}
