package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

var (
	title = color.New(color.FgBlue, color.Bold)
	good  = color.New(color.FgGreen)
	faint = color.New(color.FgHiBlack)
)

// errNoGame is returned by add when nothing is detected.
var errNoGame = errors.New("no game detected")

// Dispatch runs the command selected on the command line.
func Dispatch(ctx context.Context, args docopt.Opts, a *app) error {
	str := func(key string) string {
		s, _ := args[key].(string)
		return s
	}
	cmd := func(key string) bool {
		b, _ := args[key].(bool)
		return b
	}

	switch {
	case cmd("list-plugins"):
		return a.listPlugins()
	case cmd("list-games"):
		return a.listGames(str("<engine>"))
	case cmd("detect"):
		return a.detect(str("<path>"))
	case cmd("add"):
		return a.add(str("<path>"))
	case cmd("list-targets"):
		return a.listTargets()
	case cmd("run"):
		return a.run(ctx, str("<target>"))
	case cmd("list-saves"):
		return a.listSaves(str("<target>"))
	case cmd("remove-save"):
		slot, err := strconv.Atoi(str("<slot>"))
		if err != nil {
			return fmt.Errorf("slot %q: %w", str("<slot>"), engine.ErrInvalidSlot)
		}
		return a.removeSave(str("<target>"), slot)
	}
	return errors.New("unknown command")
}

func (a *app) listPlugins() error {
	title.Fprintln(a.out, "Plugins:")

	// File providers hand out fresh instances on every scan, so loaded
	// plugins come from the manager and the scan only adds the others.
	loaded := map[string]bool{}
	for _, typ := range plugin.Types {
		for _, p := range a.plugins.LoadedPlugins(typ) {
			if p.FileName() != "" {
				loaded[p.FileName()] = true
			}
			a.printPlugin(typ, p)
		}
	}

	for it := a.plugins.IterateAll(); it.Next(); {
		p := it.Plugin()
		if p.IsLoaded() || loaded[p.FileName()] {
			continue
		}
		name := p.FileName()
		if name == "" {
			name = "(static)"
		}
		faint.Fprintf(a.out, "  %-18s %s\n", "not loaded", name)
	}
	return nil
}

func (a *app) printPlugin(typ plugin.Type, p plugin.Plugin) {
	obj, err := p.Object()
	if err != nil {
		return
	}
	meta := obj.GetMetadata()
	fmt.Fprintf(a.out, "  %-18s %s %s", typ, good.Sprint(meta.Name), meta.Version)
	if p.FileName() != "" {
		faint.Fprintf(a.out, " (%s)", p.FileName())
	}
	fmt.Fprintln(a.out)

	switch typ {
	case plugin.TypeEngineDetection:
		if id, _ := p.EngineID(); id != "" {
			fmt.Fprintf(a.out, "  %-18s engine: %s\n", "", id)
		}
	case plugin.TypeMusic:
		if m, err := plugin.As[engine.MusicDriver](p); err == nil {
			fmt.Fprintf(a.out, "  %-18s %s: %s\n", "", m.DriverID(), strings.Join(m.Devices(), ", "))
		}
	case plugin.TypeScaler:
		if s, err := plugin.As[engine.Scaler](p); err == nil {
			fmt.Fprintf(a.out, "  %-18s factors: %v\n", "", s.Factors())
		}
	}
}

func (a *app) listGames(engineID string) error {
	games, err := a.engines.FindGamesMatching(engineID, "")
	if err != nil {
		return err
	}

	title.Fprintln(a.out, "Games:")
	for _, g := range games {
		fmt.Fprintf(a.out, "  %-12s %-20s %s\n", g.EngineID, good.Sprint(g.GameID), g.Description)
	}
	return nil
}

func (a *app) detect(path string) error {
	games, err := a.engines.DetectGames(path)
	if err != nil && len(games) == 0 {
		return err
	}
	if err != nil {
		zap.L().Warn("Some detections failed", zap.Error(err))
	}

	if len(games) == 0 {
		fmt.Fprintf(a.out, "No game detected in %s\n", path)
		return nil
	}

	title.Fprintf(a.out, "Detected in %s:\n", path)
	for _, g := range games {
		a.printGame(g)
	}
	return nil
}

func (a *app) add(path string) error {
	games, err := a.engines.DetectGames(path)
	if len(games) == 0 {
		if err != nil {
			return err
		}
		return fmt.Errorf("%s: %w", path, errNoGame)
	}

	for _, g := range games {
		name, err := a.engines.CreateTargetForGame(g)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Added target %s\n", good.Sprint(name))
		a.printGame(g)
	}
	return nil
}

func (a *app) listTargets() error {
	list, err := a.targets.List()
	if err != nil {
		return err
	}

	title.Fprintln(a.out, "Targets:")
	for _, t := range list {
		fmt.Fprintf(a.out, "  %-20s %-12s %s ", good.Sprint(t.Name), t.EngineID, t.Description)
		faint.Fprintf(a.out, "(%s)\n", t.Path)
	}
	return nil
}

func (a *app) run(ctx context.Context, target string) error {
	game, _, err := a.engines.FindTarget(target)
	if err != nil {
		return err
	}
	name, factor := a.scaler(target)
	fmt.Fprintf(a.out, "Running %s (%s), scaler %s x%d, interrupt to quit\n", good.Sprint(target), game.Description, name, factor)
	return a.engines.Launch(ctx, target)
}

// scaler returns the scaler configured for target, falling back to the
// global setting and then to the first loaded scaler.
func (a *app) scaler(target string) (string, int) {
	key := func(k string) string {
		if scoped := engine.GamesKey + "." + target + "." + k; a.config.IsSet(scoped) {
			return scoped
		}
		return k
	}
	name, factor := a.config.GetString(key(engine.ScalerKey)), a.config.GetInt(key(engine.ScaleFactorKey))

	if _, ok := a.scalers.FindScalerPlugin(name); !ok {
		plugins := a.scalers.Plugins()
		if len(plugins) == 0 {
			return "none", 1
		}
		fallback, _ := plugins[a.scalers.FindScalerPluginIndex(name)].Name()
		zap.L().Warn("Unknown scaler", zap.String("scaler", name), zap.String("fallback", fallback))
		name = fallback
	}
	return name, factor
}

func (a *app) listSaves(target string) error {
	saves, err := a.engines.ListSaves(target)
	if err != nil {
		return err
	}

	title.Fprintf(a.out, "Saves of %s:\n", target)
	for _, s := range saves {
		fmt.Fprintf(a.out, "  %3d %-32s ", s.Slot, good.Sprint(s.Description))
		faint.Fprintf(a.out, "(%s)\n", s.FileName)
	}
	return nil
}

func (a *app) removeSave(target string, slot int) error {
	if err := a.engines.RemoveSaveState(target, slot); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed save %d of %s\n", slot, good.Sprint(target))
	return nil
}

func (a *app) printGame(g engine.DetectedGame) {
	fmt.Fprintf(a.out, "  %-12s %-20s %s", g.EngineID, good.Sprint(g.GameID), g.Description)
	var tags []string
	if g.Language != "" {
		tags = append(tags, g.Language)
	}
	if g.Platform != "" {
		tags = append(tags, g.Platform)
	}
	if g.Flags.Has(engine.FlagDemo) {
		tags = append(tags, "demo")
	}
	if g.Flags.Has(engine.FlagUnstable) {
		tags = append(tags, "unstable")
	}
	if len(tags) > 0 {
		faint.Fprintf(a.out, " [%s]", strings.Join(tags, ", "))
	}
	fmt.Fprintln(a.out)
}
