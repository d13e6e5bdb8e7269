// Command detection is the detection module loaded by hosts running the
// uncached plugin policy. It bundles the detection of every engine so
// game directories can be recognized without loading any engine.
//
//	go build -buildmode=plugin -o detection.so ./plugins/detection
package main

import (
	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/plugin"
	capbible "github.com/CyrilPeponnet/enginehal/plugins/engine-capbible"
)

type detections struct {
	plugin.Metadata
	list []engine.MetaEngineDetection
}

func (d *detections) Detections() []engine.MetaEngineDetection {
	return d.list
}

// PluginVersion is the plugin ABI revision the module was built against.
func PluginVersion() int { return plugin.Version }

// PluginType is the kind of module.
func PluginType() plugin.Type { return plugin.TypeDetection }

// PluginTypeVersion is the detection interface revision.
func PluginTypeVersion() int { return plugin.DetectionVersion }

// PluginObject returns the bundled detections.
func PluginObject() plugin.Object {
	d := &detections{Metadata: plugin.NewMetadata("Detection")}
	d.Description = "Detection of every engine"
	d.list = []engine.MetaEngineDetection{
		capbible.NewDetection(),
	}
	return d
}

func main() {}
