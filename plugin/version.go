package plugin

// Version is the plugin ABI revision. Dynamic modules built against another
// revision are rejected.
const Version = 1

// Interface revisions per plugin type.
const (
	EngineDetectionVersion = 1
	EngineVersion          = 2
	MusicVersion           = 1
	DetectionVersion       = 1
	ScalerVersion          = 1
	CollectionVersion      = 1
)

var typeVersions = [typeMax]int{
	TypeEngineDetection: EngineDetectionVersion,
	TypeEngine:          EngineVersion,
	TypeMusic:           MusicVersion,
	TypeDetection:       DetectionVersion,
	TypeScaler:          ScalerVersion,
	TypeCollection:      CollectionVersion,
}

// RequiredVersion returns the interface revision the host expects for t.
func RequiredVersion(t Type) int {
	if !t.Valid() {
		return -1
	}
	return typeVersions[t]
}
