//go:build (linux || darwin || freebsd) && cgo

package plugin

import (
	goplugin "plugin"
)

// GoLoader opens modules built with -buildmode=plugin.
type GoLoader struct{}

// DefaultLoader returns the loader of the current platform.
func DefaultLoader() Loader {
	return GoLoader{}
}

// Open implements Loader.
func (GoLoader) Open(path string) (Module, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &goModule{p: p}, nil
}

type goModule struct {
	p *goplugin.Plugin
}

func (m *goModule) Lookup(symbol string) (interface{}, error) {
	sym, err := m.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Close drops the handle. Go modules stay mapped until the process exits.
func (m *goModule) Close() error {
	m.p = nil
	return nil
}
