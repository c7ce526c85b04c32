package main

import (
	"bytes"
	"image/color"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/swilhoit/wrapstudio/panel"
	"golang.org/x/image/font/gofont/goregular"
)

const leftPanelWidth = 200

// UICallbacks wires the left-panel widgets back into the editor.
type UICallbacks struct {
	OnPanelSelected func(name panel.Name)
	OnLinkToggled   func()
	OnGuideToggled  func()
	OnOverlayCycled func()
	OnFinalize      func()
	OnSave          func()
	OnClearPanel    func()
}

// UIControls lets the editor push state back into the widgets.
type UIControls struct {
	group        *widget.RadioGroup
	panelButtons map[panel.Name]*widget.Button
	linkButton   *widget.Button
	suppress     bool
}

func (c *UIControls) SetActivePanel(name panel.Name) {
	btn, ok := c.panelButtons[name]
	if !ok {
		return
	}
	c.suppress = true
	c.group.SetActive(btn)
	c.suppress = false
}

func (c *UIControls) SetLinked(on bool) {
	label := "Link Sides: Off"
	if on {
		label = "Link Sides: On"
	}
	if t := c.linkButton.Text(); t != nil {
		t.Label = label
	}
}

func BuildEditorUI(cb UICallbacks) (*ebitenui.UI, *UIControls) {
	ui := &ebitenui.UI{}

	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		panic("Failed to load font: " + err.Error())
	}
	var fontFace text.Face = &text.GoTextFace{Source: s, Size: 14}
	ui.PrimaryTheme = newEditorTheme(&fontFace)

	buttonTextColor := &widget.ButtonTextColor{
		Idle:    color.Black,
		Hover:   color.Black,
		Pressed: color.RGBA{0, 0, 200, 255},
	}

	left := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(leftPanelWidth, 0),
		),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionVertical),
				widget.RowLayoutOpts.Spacing(6),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 10, Bottom: 10, Left: 10, Right: 10}),
			),
		),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(color.RGBA{40, 40, 40, 255})),
	)

	left.AddChild(widget.NewLabel(
		widget.LabelOpts.Text("Panels", &fontFace, &widget.LabelColor{Idle: color.White}),
	))

	controls := &UIControls{panelButtons: make(map[panel.Name]*widget.Button)}
	var panelButtons []*widget.Button
	for _, name := range panel.Order() {
		btn := widget.NewButton(
			widget.ButtonOpts.Image(ui.PrimaryTheme.ButtonTheme.Image),
			widget.ButtonOpts.Text(string(name), &fontFace, buttonTextColor),
			widget.ButtonOpts.ToggleMode(),
			widget.ButtonOpts.WidgetOpts(
				widget.WidgetOpts.MinSize(leftPanelWidth-20, 32),
			),
		)
		controls.panelButtons[name] = btn
		panelButtons = append(panelButtons, btn)
		left.AddChild(btn)
	}

	elements := make([]widget.RadioGroupElement, 0, len(panelButtons))
	for _, b := range panelButtons {
		elements = append(elements, b)
	}
	order := panel.Order()
	controls.group = widget.NewRadioGroup(
		widget.RadioGroupOpts.Elements(elements...),
		widget.RadioGroupOpts.ChangedHandler(func(args *widget.RadioGroupChangedEventArgs) {
			if controls.suppress || cb.OnPanelSelected == nil {
				return
			}
			for idx, b := range panelButtons {
				if args.Active == b {
					cb.OnPanelSelected(order[idx])
					return
				}
			}
		}),
	)

	left.AddChild(widget.NewLabel(
		widget.LabelOpts.Text("Design", &fontFace, &widget.LabelColor{Idle: color.White}),
	))

	addButton := func(label string, onClick func()) *widget.Button {
		btn := widget.NewButton(
			widget.ButtonOpts.Image(ui.PrimaryTheme.ButtonTheme.Image),
			widget.ButtonOpts.Text(label, &fontFace, buttonTextColor),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				if onClick != nil {
					onClick()
				}
			}),
			widget.ButtonOpts.WidgetOpts(
				widget.WidgetOpts.MinSize(leftPanelWidth-20, 32),
			),
		)
		left.AddChild(btn)
		return btn
	}

	controls.linkButton = addButton("Link Sides: Off", cb.OnLinkToggled)
	addButton("Guides", cb.OnGuideToggled)
	addButton("Overlay", cb.OnOverlayCycled)
	addButton("Clear Panel", cb.OnClearPanel)
	addButton("Finalize", cb.OnFinalize)
	addButton("Save", cb.OnSave)

	root := widget.NewContainer(widget.ContainerOpts.Layout(widget.NewAnchorLayout()))
	left.GetWidget().LayoutData = widget.AnchorLayoutData{
		HorizontalPosition: widget.AnchorLayoutPositionStart,
		VerticalPosition:   widget.AnchorLayoutPositionCenter,
		StretchVertical:    true,
	}
	root.AddChild(left)
	ui.Container = root

	return ui, controls
}
