package engine

import (
	"context"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/pkg/targets"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// Targets is the part of the target store the manager needs.
type Targets interface {
	Exists(name string) bool
	Add(t targets.Target) error
	Get(name string) (targets.Target, error)
	Update(t targets.Target) error
}

// ModuleNamer maps an engine identifier to its module file name.
// *plugin.FileProvider satisfies it.
type ModuleNamer interface {
	ModuleName(base string) string
}

type suffixNamer string

func (s suffixNamer) ModuleName(base string) string {
	return base + string(s)
}

// Manager finds engines for game directories and launches targets.
type Manager struct {
	plugins *plugin.Manager
	targets Targets
	fs      afero.Fs
	saves   afero.Fs
	digests *DigestCache
	namer   ModuleNamer
	log     *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTargets sets the target store.
func WithTargets(t Targets) Option {
	return func(m *Manager) {
		m.targets = t
	}
}

// WithFs sets the filesystem game directories are read from.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithSaves sets the filesystem holding save files.
func WithSaves(fs afero.Fs) Option {
	return func(m *Manager) {
		m.saves = fs
	}
}

// WithDigestCache sets the cache of detection digests.
func WithDigestCache(c *DigestCache) Option {
	return func(m *Manager) {
		m.digests = c
	}
}

// WithModuleNamer sets how engine module file names are built.
func WithModuleNamer(n ModuleNamer) Option {
	return func(m *Manager) {
		m.namer = n
	}
}

// WithLogger sets the manager logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager returns an engine manager working on plugins.
func NewManager(plugins *plugin.Manager, opts ...Option) *Manager {
	m := &Manager{plugins: plugins}
	for _, opt := range opts {
		opt(m)
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	if m.saves == nil {
		m.saves = afero.NewBasePathFs(m.fs, "saves")
	}
	if m.namer == nil {
		m.namer = suffixNamer(plugin.DefaultSuffix)
	}
	if m.log == nil {
		m.log = zap.L().Named("engines")
	}
	return m
}

// Plugins returns the underlying plugin manager.
func (m *Manager) Plugins() *plugin.Manager {
	return m.plugins
}

// DetectGames runs every loaded detection against dir. Detections that fail
// do not prevent the others from reporting; their errors are aggregated.
func (m *Manager) DetectGames(dir string) ([]DetectedGame, error) {
	files, err := NewFileSet(m.fs, dir, m.digests)
	if err != nil {
		return nil, err
	}

	var games []DetectedGame
	err = m.withDetection(func() error {
		var errs *multierror.Error
		for _, d := range m.detections() {
			found, err := d.Detect(files)
			if err != nil {
				m.log.Warn("Detection failed", zap.String("engine", d.EngineID()), zap.Error(err))
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", d.EngineID(), err))
				continue
			}
			games = append(games, found...)
		}
		return errs.ErrorOrNil()
	})

	m.log.Debug("Detected games", zap.String("dir", dir), zap.Int("count", len(games)))
	return games, err
}

// FindPlugin returns the loaded plugin holding the detection of engineID.
func (m *Manager) FindPlugin(engineID string) (plugin.Plugin, error) {
	for _, p := range m.plugins.LoadedPlugins(plugin.TypeEngineDetection) {
		if id, err := p.EngineID(); err == nil && id == engineID {
			return p, nil
		}
	}
	for _, p := range m.plugins.LoadedPlugins(plugin.TypeDetection) {
		set, err := plugin.As[DetectionSet](p)
		if err != nil {
			continue
		}
		for _, d := range set.Detections() {
			if d.EngineID() == engineID {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", engineID, ErrDetectionNotFound)
}

// FindDetection returns the loaded detection of engineID.
func (m *Manager) FindDetection(engineID string) (MetaEngineDetection, error) {
	for _, d := range m.detections() {
		if d.EngineID() == engineID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", engineID, ErrDetectionNotFound)
}

// FindEnginePlugin returns the engine plugin of engineID, loading it when no
// loaded plugin provides it.
func (m *Manager) FindEnginePlugin(engineID string) (plugin.Plugin, error) {
	if p, ok := m.loadedEngine(engineID); ok {
		return p, nil
	}
	if err := m.LoadPluginFromEngineID(engineID); err != nil {
		return nil, err
	}
	if p, ok := m.loadedEngine(engineID); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%s: %w", engineID, ErrEngineNotFound)
}

// LoadPluginFromEngineID loads the engine module named after engineID. When
// no module file carries that name, released static engines are tried.
func (m *Manager) LoadPluginFromEngineID(engineID string) error {
	file := m.namer.ModuleName(engineID)
	if p, ok := m.plugins.PluginByFileName(file); ok {
		switch err := m.plugins.TryLoad(p); {
		case err != nil:
			m.log.Warn("Failed loading engine module", zap.String("file", p.FileName()), zap.String("engine", engineID), zap.Error(err))
		case isEngine(p, engineID):
			return nil
		default:
			m.log.Warn("Module does not provide the expected engine", zap.String("file", p.FileName()), zap.String("engine", engineID))
			if err := m.plugins.Unload(p); err != nil {
				m.log.Warn("Failed unloading plugin", zap.String("file", p.FileName()), zap.Error(err))
			}
		}
	}

	for it := m.plugins.IterateAll(); it.Next(); {
		p := it.Plugin()
		if p.FileName() != "" || p.IsLoaded() {
			continue
		}
		if err := m.plugins.TryLoad(p); err != nil {
			continue
		}
		if isEngine(p, engineID) {
			return nil
		}
		_ = m.plugins.Unload(p)
	}
	return fmt.Errorf("%s: %w", engineID, ErrEngineNotFound)
}

// MetaEngineFromEngine returns the detection matching an engine plugin.
func (m *Manager) MetaEngineFromEngine(p plugin.Plugin) (MetaEngineDetection, error) {
	name, err := p.Name()
	if err != nil {
		return nil, err
	}
	return m.FindDetection(name)
}

// EngineFromMetaEngine returns the engine plugin matching an engine
// detection plugin.
func (m *Manager) EngineFromMetaEngine(p plugin.Plugin) (plugin.Plugin, error) {
	id, err := p.EngineID()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%s: %w", p.FileName(), ErrEngineNotFound)
	}
	return m.FindEnginePlugin(id)
}

// FindGamesMatching lists the supported games of engineID called gameID.
// Empty arguments match everything.
func (m *Manager) FindGamesMatching(engineID, gameID string) ([]QualifiedGame, error) {
	var games []QualifiedGame
	err := m.withDetection(func() error {
		for _, d := range m.detections() {
			if engineID != "" && d.EngineID() != engineID {
				continue
			}
			for _, g := range d.SupportedGames() {
				if gameID == "" || g.GameID == gameID {
					games = append(games, QualifiedGame{EngineID: d.EngineID(), GameDescriptor: g})
				}
			}
		}
		return nil
	})
	return games, err
}

// CreateTargetForGame stores game as a new target and returns its name. The
// name is the game identifier, suffixed with a counter when already taken.
func (m *Manager) CreateTargetForGame(game DetectedGame) (string, error) {
	if m.targets == nil {
		return "", ErrNoTargetStore
	}

	name := game.GameID
	for i := 1; m.targets.Exists(name); i++ {
		name = fmt.Sprintf("%s-%d", game.GameID, i)
	}

	t := targets.Target{
		Name:        name,
		EngineID:    game.EngineID,
		GameID:      game.GameID,
		Description: game.Description,
		Extra:       game.Extra,
		Language:    game.Language,
		Platform:    game.Platform,
		Flags:       uint32(game.Flags),
		Path:        game.Path,
	}
	if err := m.targets.Add(t); err != nil {
		return "", err
	}
	m.log.Info("Added target", zap.String("target", name), zap.String("engine", game.EngineID))
	return name, nil
}

// Launch runs the target called name until it ends or ctx is done. With an
// uncached plugin manager every other engine is released first.
func (m *Manager) Launch(ctx context.Context, name string) error {
	if m.targets == nil {
		return ErrNoTargetStore
	}
	t, err := m.targets.Get(name)
	if err != nil {
		return err
	}
	if needsUpgrade(t) {
		if t, err = m.upgradeTarget(t); err != nil {
			return err
		}
	}

	p, err := m.FindEnginePlugin(t.EngineID)
	if err != nil {
		return err
	}

	if m.plugins.Uncached() {
		if err := m.plugins.UnloadExcept(plugin.TypeEngine, p, true); err != nil {
			m.log.Warn("Failed releasing engines", zap.Error(err))
		}
	}

	meta, err := plugin.As[MetaEngine](p)
	if err != nil {
		return err
	}
	eng, err := meta.CreateInstance(m.fs, GameFromTarget(t))
	if err != nil {
		return fmt.Errorf("%s: %w", t.EngineID, err)
	}

	m.log.Info("Launching target", zap.String("target", name), zap.String("engine", t.EngineID), zap.String("path", t.Path))
	return eng.Run(ctx)
}

// GameFromTarget rebuilds the detected game a target was created from.
func GameFromTarget(t targets.Target) DetectedGame {
	return DetectedGame{
		EngineID:    t.EngineID,
		GameID:      t.GameID,
		Description: t.Description,
		Extra:       t.Extra,
		Language:    t.Language,
		Platform:    t.Platform,
		Flags:       GameFlags(t.Flags),
		Path:        t.Path,
	}
}

// withDetection runs fn with the detection plugin of an uncached manager in
// memory.
func (m *Manager) withDetection(fn func() error) error {
	if !m.plugins.Uncached() {
		return fn()
	}

	if err := m.plugins.LoadDetectionPlugin(); err != nil {
		// Static detections still apply.
		m.log.Warn("Failed loading the detection plugin", zap.Error(err))
		return fn()
	}
	defer func() {
		if err := m.plugins.UnloadDetectionPlugin(); err != nil {
			m.log.Warn("Failed unloading the detection plugin", zap.Error(err))
		}
	}()
	return fn()
}

// detections returns the loaded detections, one per engine.
func (m *Manager) detections() []MetaEngineDetection {
	var out []MetaEngineDetection
	seen := map[string]bool{}

	add := func(d MetaEngineDetection) {
		if seen[d.EngineID()] {
			return
		}
		seen[d.EngineID()] = true
		out = append(out, d)
	}

	for _, p := range m.plugins.LoadedPlugins(plugin.TypeEngineDetection) {
		d, err := plugin.As[MetaEngineDetection](p)
		if err != nil {
			m.log.Debug("Skipping engine detection plugin", zap.String("file", p.FileName()), zap.Error(err))
			continue
		}
		add(d)
	}
	for _, p := range m.plugins.LoadedPlugins(plugin.TypeDetection) {
		set, err := plugin.As[DetectionSet](p)
		if err != nil {
			m.log.Debug("Skipping detection plugin", zap.String("file", p.FileName()), zap.Error(err))
			continue
		}
		for _, d := range set.Detections() {
			add(d)
		}
	}
	return out
}

func (m *Manager) loadedEngine(engineID string) (plugin.Plugin, bool) {
	for _, p := range m.plugins.LoadedPlugins(plugin.TypeEngine) {
		if isEngine(p, engineID) {
			return p, true
		}
	}
	return nil, false
}

func isEngine(p plugin.Plugin, engineID string) bool {
	typ, err := p.Type()
	if err != nil || typ != plugin.TypeEngine {
		return false
	}
	name, err := p.Name()
	return err == nil && name == engineID
}
