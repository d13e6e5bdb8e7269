package builtins

import (
	"fmt"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

// normal struct define the nearest neighbour scaler
type normal struct {
	plugin.Metadata
}

// Factors interface implementation
func (h *normal) Factors() []int {
	return []int{1, 2, 3, 4}
}

// ExtraPixels interface implementation
func (h *normal) ExtraPixels() int {
	return 0
}

// Scale interface implementation
func (h *normal) Scale(src []byte, width, height, factor int) ([]byte, error) {
	if factor < 1 || factor > 4 {
		return nil, fmt.Errorf("unsupported scale factor %d", factor)
	}
	if width < 0 || height < 0 || len(src) < width*height {
		return nil, fmt.Errorf("frame of %d bytes is smaller than %dx%d", len(src), width, height)
	}

	outWidth := width * factor
	dst := make([]byte, outWidth*height*factor)
	for y := 0; y < height; y++ {
		row := dst[y*factor*outWidth : (y*factor+1)*outWidth]
		for x := 0; x < width; x++ {
			px := src[y*width+x]
			for i := 0; i < factor; i++ {
				row[x*factor+i] = px
			}
		}
		for i := 1; i < factor; i++ {
			copy(dst[(y*factor+i)*outWidth:], row)
		}
	}
	return dst, nil
}

// init function that will register your plugin to the plugin manager
func init() {
	plugin.RegisterStatic(plugin.TypeScaler, func() plugin.Object {
		s := new(normal)
		s.Metadata = plugin.NewMetadata("normal")
		s.Description = "Plain pixel replication"
		return s
	})
}
