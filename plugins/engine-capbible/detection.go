package capbible

import (
	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// EngineID is the identifier of the engine.
const EngineID = "capbible"

var games = []engine.GameDescriptor{
	{GameID: "domeofdarkness", Description: "Captain Bible in Dome of Darkness"},
}

var gameDescriptions = []engine.GameDescription{
	// English
	{
		GameID: "domeofdarkness",
		Files: []engine.FileEntry{
			{Name: "cb.exe", MD5: "64e43d07e24e103d126c6b7c012fcc10", Size: 64299},
			{Name: "dd1.dat", MD5: "ada87cd9a3b0d792fc50339e8e6c3459", Size: 1866068},
		},
		Language: "en",
		Platform: "dos",
		Flags:    engine.FlagUnstable,
	},
	{
		GameID: "domeofdarkness",
		Extra:  "Special Edition",
		Files: []engine.FileEntry{
			{Name: "cbse.exe", MD5: "3c37e1c44f318385c81cffeda24fac53", Size: 64251},
			{Name: "cbse.dat", MD5: "ecfebe47b7a901d3b557cf3a575cfd57", Size: 738241},
		},
		Language: "en",
		Platform: "dos",
		Flags:    engine.FlagUnstable | engine.FlagDemo,
	},
}

// NewDetection returns the detection of the engine.
func NewDetection() *engine.AdvancedDetector {
	d := engine.NewAdvancedDetector(EngineID, "Captain Bible",
		"Captain Bible in Dome of Darkness (C) Bridgestone Multimedia Group",
		games, gameDescriptions)
	d.Description = "Detects Captain Bible in Dome of Darkness data files"
	return d
}

// init function that will register the detection to the plugin manager
func init() {
	plugin.RegisterStatic(plugin.TypeEngineDetection, func() plugin.Object {
		return NewDetection()
	})
}
