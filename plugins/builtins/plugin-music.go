package builtins

import (
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// music struct define a music driver
type music struct {
	plugin.Metadata
	id      string
	devices []string
}

// DriverID interface implementation
func (h *music) DriverID() string {
	return h.id
}

// Devices interface implementation
func (h *music) Devices() []string {
	return append([]string(nil), h.devices...)
}

func newMusic(id, name, description string, devices ...string) plugin.Factory {
	return func() plugin.Object {
		m := &music{id: id, devices: devices}
		m.Metadata = plugin.NewMetadata(name)
		m.Description = description
		return m
	}
}

// init function that will register the drivers to the plugin manager
func init() {
	plugin.RegisterStatic(plugin.TypeMusic, newMusic("null", "No music", "Silences every music track", "No music"))
	plugin.RegisterStatic(plugin.TypeMusic, newMusic("pcspk", "PC Speaker emulator", "Square wave PC speaker output", "PC Speaker", "IBM PCjr"))
}
