package plugin

import (
	"fmt"
)

// Type is the kind of module wrapped by a plugin.
type Type int

// Plugin types.
const (
	TypeEngineDetection Type = iota
	TypeEngine
	TypeMusic
	TypeDetection
	TypeScaler
	TypeCollection

	typeMax
)

// Types lists every plugin type in bucket order.
var Types = []Type{TypeEngineDetection, TypeEngine, TypeMusic, TypeDetection, TypeScaler, TypeCollection}

// String returns a string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeEngineDetection:
		return "engine-detection"
	case TypeEngine:
		return "engine"
	case TypeMusic:
		return "music"
	case TypeDetection:
		return "detection"
	case TypeScaler:
		return "scaler"
	case TypeCollection:
		return "collection"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid reports whether t is a known plugin type.
func (t Type) Valid() bool {
	return t >= 0 && t < typeMax
}

// Metadata struct
type Metadata struct {
	Name        string
	Description string
	Version     string
	Copyright   string
}

// NewMetadata return a new Metadata instance
func NewMetadata(name string) (m Metadata) {
	m.Name = name
	m.Description = fmt.Sprintf("%v's description", name)
	m.Version = "1.0"
	return
}

// GetMetadata makes any struct embedding Metadata an Object.
func (m *Metadata) GetMetadata() *Metadata {
	return m
}

// Object is the value a loaded plugin exposes. Engines, detection tables,
// music drivers and scalers all implement it.
type Object interface {
	GetMetadata() *Metadata
}

// EngineIdentifier is implemented by engine detection objects.
type EngineIdentifier interface {
	EngineID() string
}

// Plugin wraps one loadable module.
//
// A plugin is either fully loaded (its object is available) or fully
// unloaded. Accessors never load implicitly: they return ErrNotLoaded and the
// caller is expected to go through Manager.TryLoad first.
type Plugin interface {
	// FileName is the identity of a dynamic plugin, empty for static ones.
	FileName() string
	IsLoaded() bool
	Load() error
	Unload() error
	// Destroy releases the plugin for good once no manager bucket holds it.
	Destroy()

	Type() (Type, error)
	Name() (string, error)
	// EngineID returns the engine identifier of an engine detection plugin and
	// an empty string for every other type.
	EngineID() (string, error)
	Object() (Object, error)
}

// As returns the object of a loaded plugin as the capability T.
func As[T any](p Plugin) (T, error) {
	var zero T
	obj, err := p.Object()
	if err != nil {
		return zero, err
	}
	c, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%s does not provide %T: %w", obj.GetMetadata().Name, &zero, ErrCapabilityMismatch)
	}
	return c, nil
}

// base holds what static and dynamic plugins share.
type base struct {
	typ    Type
	object Object
}

func (b *base) IsLoaded() bool {
	return b.object != nil
}

func (b *base) Type() (Type, error) {
	if !b.IsLoaded() {
		return 0, ErrNotLoaded
	}
	return b.typ, nil
}

func (b *base) Name() (string, error) {
	if !b.IsLoaded() {
		return "", ErrNotLoaded
	}
	return b.object.GetMetadata().Name, nil
}

func (b *base) EngineID() (string, error) {
	if !b.IsLoaded() {
		return "", ErrNotLoaded
	}
	if b.typ != TypeEngineDetection {
		return "", nil
	}
	if id, ok := b.object.(EngineIdentifier); ok {
		return id.EngineID(), nil
	}
	return "", nil
}

func (b *base) Object() (Object, error) {
	if !b.IsLoaded() {
		return nil, ErrNotLoaded
	}
	return b.object, nil
}
