package types

// Component names understood by the host front end.
const (
	ComponentView         = "View"
	ComponentTabs         = "TabsView"
	ComponentDropdown     = "DropdownView"
	ComponentRadioGroup   = "RadioGroup"
	ComponentRadio        = "RadioView"
	ComponentAutocomplete = "AutocompleteView"
	ComponentMarkdown     = "MarkdownView"
	ComponentHidden       = "HiddenView"
	ComponentSwitch       = "SwitchView"
	ComponentCheckbox     = "CheckboxView"
	ComponentSlider       = "SliderView"
	ComponentField        = "FieldView"
	ComponentCode         = "CodeView"
	ComponentFileExplorer = "FileExplorerView"
	ComponentNotice       = "Notice"
	ComponentWarning      = "Warning"
	ComponentError        = "Error"
	ComponentSuccess      = "Success"
	ComponentHeader       = "Header"
	ComponentMessage      = "MessageView"
)

// Choice is a single selectable value of a choice-bearing view.
type Choice struct {
	Value       string `json:"value"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// ChoiceOption customizes a Choice.
type ChoiceOption func(*Choice)

// ChoiceLabel sets the label shown for a choice.
func ChoiceLabel(label string) ChoiceOption {
	return func(c *Choice) {
		c.Label = label
	}
}

// ChoiceDescription sets the secondary text shown for a choice.
func ChoiceDescription(description string) ChoiceOption {
	return func(c *Choice) {
		c.Description = description
	}
}

// View describes how the host renders a property. A single struct covers
// every component; unused attributes are omitted from the wire form.
type View struct {
	Component         string         `json:"component"`
	Label             string         `json:"label,omitempty"`
	Description       string         `json:"description,omitempty"`
	Caption           string         `json:"caption,omitempty"`
	Space             float64        `json:"space,omitempty"`
	ReadOnly          bool           `json:"read_only,omitempty"`
	Divider           bool           `json:"divider,omitempty"`
	Language          string         `json:"language,omitempty"`
	Multiple          bool           `json:"multiple,omitempty"`
	Choices           []Choice       `json:"choices,omitempty"`
	ComponentsProps   map[string]any `json:"componentsProps,omitempty"`
	ChooseDir         bool           `json:"choose_dir,omitempty"`
	ButtonLabel       string         `json:"button_label,omitempty"`
	ChooseButtonLabel string         `json:"choose_button_label,omitempty"`
}

// ViewOption customizes a View.
type ViewOption func(*View)

// ViewLabel sets the view label.
func ViewLabel(label string) ViewOption {
	return func(v *View) {
		v.Label = label
	}
}

// ViewDescription sets the view description.
func ViewDescription(description string) ViewOption {
	return func(v *View) {
		v.Description = description
	}
}

// Caption sets the view caption.
func Caption(caption string) ViewOption {
	return func(v *View) {
		v.Caption = caption
	}
}

// Space sets the grid width the view occupies (12 is a full row).
func Space(space float64) ViewOption {
	return func(v *View) {
		v.Space = space
	}
}

// ReadOnly marks the view as not editable.
func ReadOnly() ViewOption {
	return func(v *View) {
		v.ReadOnly = true
	}
}

// Divider draws a divider below a header.
func Divider() ViewOption {
	return func(v *View) {
		v.Divider = true
	}
}

// Language sets the syntax highlighting language of a code view.
func Language(language string) ViewOption {
	return func(v *View) {
		v.Language = language
	}
}

// Multiple allows selecting several choices.
func Multiple() ViewOption {
	return func(v *View) {
		v.Multiple = true
	}
}

// ComponentsProps passes raw props to the rendered component.
func ComponentsProps(props map[string]any) ViewOption {
	return func(v *View) {
		v.ComponentsProps = props
	}
}

// ChooseDir makes a file explorer select directories.
func ChooseDir() ViewOption {
	return func(v *View) {
		v.ChooseDir = true
	}
}

// ButtonLabel sets the label of the button opening a file explorer.
func ButtonLabel(label string) ViewOption {
	return func(v *View) {
		v.ButtonLabel = label
	}
}

// ChooseButtonLabel sets the label of the file explorer accept button.
func ChooseButtonLabel(label string) ViewOption {
	return func(v *View) {
		v.ChooseButtonLabel = label
	}
}

func newView(component string, opts []ViewOption) *View {
	v := &View{Component: component}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// AddChoice appends a choice and returns the view for chaining.
func (v *View) AddChoice(value string, opts ...ChoiceOption) *View {
	c := Choice{Value: value}
	for _, opt := range opts {
		opt(&c)
	}
	v.Choices = append(v.Choices, c)
	return v
}

// Values returns the values of all choices in insertion order.
func (v *View) Values() []string {
	values := make([]string, 0, len(v.Choices))
	for _, c := range v.Choices {
		values = append(values, c.Value)
	}
	return values
}

// IsMessage reports whether the view only displays text.
func (v *View) IsMessage() bool {
	switch v.Component {
	case ComponentNotice, ComponentWarning, ComponentError, ComponentSuccess,
		ComponentHeader, ComponentMessage:
		return true
	}
	return false
}

func NewView(opts ...ViewOption) *View             { return newView(ComponentView, opts) }
func NewTabsView(opts ...ViewOption) *View         { return newView(ComponentTabs, opts) }
func NewDropdownView(opts ...ViewOption) *View     { return newView(ComponentDropdown, opts) }
func NewRadioGroup(opts ...ViewOption) *View       { return newView(ComponentRadioGroup, opts) }
func NewRadioView(opts ...ViewOption) *View        { return newView(ComponentRadio, opts) }
func NewAutocompleteView(opts ...ViewOption) *View { return newView(ComponentAutocomplete, opts) }
func NewMarkdownView(opts ...ViewOption) *View     { return newView(ComponentMarkdown, opts) }
func NewHiddenView(opts ...ViewOption) *View       { return newView(ComponentHidden, opts) }
func NewSwitchView(opts ...ViewOption) *View       { return newView(ComponentSwitch, opts) }
func NewCheckboxView(opts ...ViewOption) *View     { return newView(ComponentCheckbox, opts) }
func NewSliderView(opts ...ViewOption) *View       { return newView(ComponentSlider, opts) }
func NewFieldView(opts ...ViewOption) *View        { return newView(ComponentField, opts) }
func NewCodeView(opts ...ViewOption) *View         { return newView(ComponentCode, opts) }
func NewFileExplorerView(opts ...ViewOption) *View { return newView(ComponentFileExplorer, opts) }

// NewDropdown is the choice container used for dropdown enums.
func NewDropdown(opts ...ViewOption) *View { return newView(ComponentDropdown, opts) }

// NewNotice returns an informational message view.
func NewNotice(label string, opts ...ViewOption) *View {
	return newView(ComponentNotice, append([]ViewOption{ViewLabel(label)}, opts...))
}

// NewWarning returns a warning message view.
func NewWarning(label string, opts ...ViewOption) *View {
	return newView(ComponentWarning, append([]ViewOption{ViewLabel(label)}, opts...))
}

// NewError returns an error message view.
func NewError(label string, opts ...ViewOption) *View {
	return newView(ComponentError, append([]ViewOption{ViewLabel(label)}, opts...))
}

// NewSuccess returns a success message view.
func NewSuccess(label string, opts ...ViewOption) *View {
	return newView(ComponentSuccess, append([]ViewOption{ViewLabel(label)}, opts...))
}

// NewHeader returns a section header view.
func NewHeader(label string, opts ...ViewOption) *View {
	return newView(ComponentHeader, append([]ViewOption{ViewLabel(label)}, opts...))
}

// NewMessageView returns a plain message view.
func NewMessageView(label string, opts ...ViewOption) *View {
	return newView(ComponentMessage, append([]ViewOption{ViewLabel(label)}, opts...))
}
