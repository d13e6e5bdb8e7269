package builtins

import (
	"fmt"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

// advmame struct define the edge smoothing AdvMAME scaler
type advmame struct {
	plugin.Metadata
}

// Factors interface implementation
func (h *advmame) Factors() []int {
	return []int{2, 4}
}

// ExtraPixels interface implementation
func (h *advmame) ExtraPixels() int {
	return 4
}

// Scale interface implementation. 4x runs the 2x pass twice.
func (h *advmame) Scale(src []byte, width, height, factor int) ([]byte, error) {
	if width < 0 || height < 0 || len(src) < width*height {
		return nil, fmt.Errorf("frame of %d bytes is smaller than %dx%d", len(src), width, height)
	}
	switch factor {
	case 2:
		return scale2x(src, width, height), nil
	case 4:
		return scale2x(scale2x(src, width, height), width*2, height*2), nil
	}
	return nil, fmt.Errorf("unsupported scale factor %d", factor)
}

// scale2x expands every pixel E into four, copying a neighbour into a corner
// when the two neighbours around that corner match:
//
//	  B        E0 E1
//	D E F  ->  E2 E3
//	  H
func scale2x(src []byte, width, height int) []byte {
	at := func(x, y int) byte {
		if x < 0 {
			x = 0
		} else if x >= width {
			x = width - 1
		}
		if y < 0 {
			y = 0
		} else if y >= height {
			y = height - 1
		}
		return src[y*width+x]
	}

	outWidth := width * 2
	dst := make([]byte, outWidth*height*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b, d, e, f, h := at(x, y-1), at(x-1, y), at(x, y), at(x+1, y), at(x, y+1)
			e0, e1, e2, e3 := e, e, e, e
			if b != h && d != f {
				if d == b {
					e0 = d
				}
				if b == f {
					e1 = f
				}
				if d == h {
					e2 = d
				}
				if h == f {
					e3 = f
				}
			}
			i := y*2*outWidth + x*2
			dst[i], dst[i+1] = e0, e1
			dst[i+outWidth], dst[i+outWidth+1] = e2, e3
		}
	}
	return dst
}

// init function that will register your plugin to the plugin manager
func init() {
	plugin.RegisterStatic(plugin.TypeScaler, func() plugin.Object {
		s := new(advmame)
		s.Metadata = plugin.NewMetadata("advmame")
		s.Description = "AdvMAME edge smoothing"
		return s
	})
}
