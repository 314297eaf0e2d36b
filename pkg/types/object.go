package types

// Kind is the value type of a property.
type Kind string

const (
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindEnum    Kind = "enum"
	KindList    Kind = "list"
	KindObject  Kind = "object"
	KindFile    Kind = "file"
	// KindVoid properties carry no value and only display a view.
	KindVoid Kind = "void"
)

// Property is a named, typed field of a form.
type Property struct {
	Name        string   `json:"name,omitempty"`
	Kind        Kind     `json:"type"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Invalid     bool     `json:"invalid,omitempty"`
	Values      []string `json:"values,omitempty"`
	Element     Kind     `json:"element,omitempty"`
	Object      *Object  `json:"object,omitempty"`
	View        *View    `json:"view,omitempty"`
}

// PropertyOption customizes a Property.
type PropertyOption func(*Property)

// Label sets the property label.
func Label(label string) PropertyOption {
	return func(p *Property) {
		p.Label = label
	}
}

// Description sets the property description.
func Description(description string) PropertyOption {
	return func(p *Property) {
		p.Description = description
	}
}

// Default sets the value used when the user has not provided one.
func Default(value any) PropertyOption {
	return func(p *Property) {
		p.Default = value
	}
}

// Required marks the property as mandatory.
func Required(required bool) PropertyOption {
	return func(p *Property) {
		p.Required = required
	}
}

// WithView sets how the property is rendered.
func WithView(view *View) PropertyOption {
	return func(p *Property) {
		p.View = view
	}
}

// Object is an ordered collection of properties.
type Object struct {
	Properties []*Property `json:"properties"`
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{}
}

// NewProperty wraps an object as the root property of a form.
func NewProperty(obj *Object, opts ...PropertyOption) *Property {
	p := &Property{Kind: KindObject, Object: obj}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (o *Object) add(name string, kind Kind, opts []PropertyOption) *Property {
	p := &Property{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(p)
	}
	o.Properties = append(o.Properties, p)
	return p
}

// Str defines a string property.
func (o *Object) Str(name string, opts ...PropertyOption) *Property {
	return o.add(name, KindString, opts)
}

// Bool defines a boolean property.
func (o *Object) Bool(name string, opts ...PropertyOption) *Property {
	return o.add(name, KindBoolean, opts)
}

// Float defines a floating point property.
func (o *Object) Float(name string, opts ...PropertyOption) *Property {
	return o.add(name, KindNumber, opts)
}

// Int defines an integer property.
func (o *Object) Int(name string, opts ...PropertyOption) *Property {
	return o.add(name, KindInteger, opts)
}

// Enum defines a property restricted to values.
func (o *Object) Enum(name string, values []string, opts ...PropertyOption) *Property {
	p := o.add(name, KindEnum, opts)
	p.Values = values
	return p
}

// List defines a list property whose items are of kind element.
func (o *Object) List(name string, element Kind, opts ...PropertyOption) *Property {
	p := o.add(name, KindList, opts)
	p.Element = element
	return p
}

// File defines a file or directory picker property.
func (o *Object) File(name string, opts ...PropertyOption) *Property {
	return o.add(name, KindFile, opts)
}

// View defines a value-less property that only displays view.
func (o *Object) View(name string, view *View) *Property {
	return o.add(name, KindVoid, []PropertyOption{WithView(view)})
}

// Message defines a plain message.
func (o *Object) Message(name, label string, opts ...PropertyOption) *Property {
	p := o.add(name, KindVoid, opts)
	p.View = NewMessageView(label, ViewDescription(p.Description))
	return p
}

// DefineProperty nests obj under name.
func (o *Object) DefineProperty(name string, obj *Object, opts ...PropertyOption) *Property {
	p := o.add(name, KindObject, opts)
	p.Object = obj
	return p
}

// Property returns the property called name, or nil.
func (o *Object) Property(name string) *Property {
	for _, p := range o.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Names returns property names in definition order.
func (o *Object) Names() []string {
	names := make([]string, 0, len(o.Properties))
	for _, p := range o.Properties {
		names = append(names, p.Name)
	}
	return names
}

// Valid reports whether no property in the tree is marked invalid.
func (o *Object) Valid() bool {
	for _, p := range o.Properties {
		if p.Invalid {
			return false
		}
		if p.Object != nil && !p.Object.Valid() {
			return false
		}
	}
	return true
}
