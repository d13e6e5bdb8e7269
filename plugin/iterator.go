package plugin

// Iterator is a lazy cursor over the plugins of the registered providers.
// Each provider is queried when the cursor reaches it, so file based
// providers are scanned live. The provider list is the one registered when
// the iterator was created.
//
//	it := pm.Iterate(plugin.TypeEngine)
//	for it.Next() {
//	    p := it.Plugin()
//	}
type Iterator struct {
	providers []Provider
	all       bool
	typ       Type

	provider int
	list     []Plugin
	current  int
	started  bool
}

// Iterate walks the loaded plugins of type typ.
func (m *Manager) Iterate(typ Type) *Iterator {
	return newIterator(m.Providers(), false, typ)
}

// IterateAll walks every plugin of every provider, loaded or not.
func (m *Manager) IterateAll() *Iterator {
	return newIterator(m.Providers(), true, 0)
}

func newIterator(providers []Provider, all bool, typ Type) *Iterator {
	return &Iterator{providers: providers, all: all, typ: typ}
}

// Next advances to the next matching plugin. It returns false once every
// provider has been visited.
func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
		if len(it.providers) == 0 {
			return false
		}
		it.provider = 0
		it.list = it.providers[0].Plugins()
		it.current = 0
	} else {
		it.current++
	}

	for it.provider < len(it.providers) {
		for ; it.current < len(it.list); it.current++ {
			if it.accept(it.list[it.current]) {
				return true
			}
		}

		// Empty providers are skipped, not treated as the end.
		it.provider++
		if it.provider < len(it.providers) {
			it.list = it.providers[it.provider].Plugins()
			it.current = 0
		}
	}
	it.list = nil
	return false
}

// Plugin returns the plugin under the cursor.
func (it *Iterator) Plugin() Plugin {
	if it.current >= len(it.list) {
		return nil
	}
	return it.list[it.current]
}

func (it *Iterator) accept(p Plugin) bool {
	if it.all {
		return true
	}
	if !p.IsLoaded() {
		return false
	}
	typ, err := p.Type()
	return err == nil && typ == it.typ
}
