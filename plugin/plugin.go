// Package plugin forwards locally defined plugins to a foreign registration
// host.
//
// A plugin is any value; what it can do is decided by the capability
// interfaces it implements. ObjectType is currently the only capability the
// host understands. Plugins may also be handed over as a Factory, in which
// case they are instantiated exactly once before registration.
package plugin

import (
	"errors"
	"io"
)

var ErrUnsupportedPlugin = errors.New("plugin does not implement a known capability")

// Factory produces a plugin instance.
type Factory func() any

// Exporter lets an object type reference other exported objects while
// serializing.
type Exporter interface {
	Reference(obj any) (ref int, ok bool)
}

// ObjectType is the capability of serializing objects of one type.
type ObjectType interface {
	Name() string
	IsType(obj any) bool
	ToBytes(exp Exporter, obj any) ([]byte, error)
}

// JSPlugin is optionally implemented by object types that ship a browser
// UI asset.
type JSPlugin interface {
	JSName() (string, error)
	JSMain() (string, error)
	JSPath() (string, error)
	JSVersion() (string, error)
}

// Callback is the registration entry point of the foreign host.
type Callback interface {
	RegisterObjectType(name string, adapter *ObjectTypeAdapter, jsPluginInfo map[string]string) error
}

// ObjectTypeAdapter exposes a local ObjectType to the foreign host.
type ObjectTypeAdapter struct {
	name string
	ot   ObjectType
}

func NewObjectTypeAdapter(ot ObjectType) *ObjectTypeAdapter {
	return &ObjectTypeAdapter{name: ot.Name(), ot: ot}
}

func (a *ObjectTypeAdapter) Name() string { return a.name }

func (a *ObjectTypeAdapter) IsType(obj any) bool { return a.ot.IsType(obj) }

func (a *ObjectTypeAdapter) ToBytes(exp Exporter, obj any) ([]byte, error) {
	return a.ot.ToBytes(exp, obj)
}

// WriteCompatibleObjectTo serializes obj into w.
func (a *ObjectTypeAdapter) WriteCompatibleObjectTo(exp Exporter, obj any, w io.Writer) error {
	b, err := a.ot.ToBytes(exp, obj)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (a *ObjectTypeAdapter) String() string { return "ObjectTypeAdapter(" + a.name + ")" }
