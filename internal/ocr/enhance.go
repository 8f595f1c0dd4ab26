package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	thresholdBlock = 11
	thresholdC     = 2
)

// Enhance binarizes img against its Gaussian-weighted local mean, which
// copes with uneven lighting where a global threshold would not, then
// removes speckle with a 3x3 median pass.
func Enhance(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	// sigma derived from the block size the same way OpenCV does
	sigma := 0.3*(float64(thresholdBlock-1)*0.5-1) + 0.8
	mean := imaging.Blur(gray, sigma)

	b := gray.Bounds()
	bin := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := int(gray.NRGBAAt(x, y).R)
			m := int(mean.NRGBAAt(x, y).R)
			if v > m-thresholdC {
				bin.SetGray(x, y, color.Gray{Y: 255})
			} else {
				bin.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return median3(bin)
}

// median3 applies a 3x3 median filter. On a binary image this is a
// majority vote over the neighbourhood; edges replicate border pixels.
func median3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v >= hi {
			return hi - 1
		}
		return v
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			white := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px := src.GrayAt(clamp(x+dx, b.Min.X, b.Max.X), clamp(y+dy, b.Min.Y, b.Max.Y))
					if px.Y >= 128 {
						white++
					}
				}
			}
			if white >= 5 {
				dst.SetGray(x, y, color.Gray{Y: 255})
			} else {
				dst.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return dst
}
