package enhance

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/legendx/enhancebot/common/model"
)

// Fixed pipeline parameters. The pipeline is a pure function of the input
// bytes and these constants, so repeated runs are byte-identical.
const (
	maxLongEdge      = 2000
	unsharpRadius    = 1.5
	unsharpAmount    = 1.5 // 150%
	unsharpThreshold = 3
	sharpnessFactor  = 1.3
	contrastFactor   = 1.12
	colorFactor      = 1.08
	jpegQuality      = 92
)

// detailKernel accentuates fine detail; applied after the enhancement
// factors. Divisor 6, offset 0.
var detailKernel = [9]float64{0, -1, 0, -1, 10, -1, 0, -1, 0}

const detailKernelScale = 6

// smoothKernel is the degenerate image for the sharpness factor. Divisor 13.
var smoothKernel = [9]float64{1, 1, 1, 1, 5, 1, 1, 1, 1}

const smoothKernelScale = 13

// Enhance decodes the input, applies the fixed transform chain, and
// re-encodes as JPEG. Any decode failure fails the whole call; no partial
// output is ever returned. CPU-bound: callers must keep it off the event
// dispatch path (see Service).
func Enhance(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", model.ErrDecode)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}

	img := toRGB(src)
	img = boundResize(img, maxLongEdge)
	img = unsharpMask(img, unsharpRadius, unsharpAmount, unsharpThreshold)
	img = interpolate(convolve3x3(img, smoothKernel, smoothKernelScale), img, sharpnessFactor)
	img = interpolate(meanGrayImage(img), img, contrastFactor)
	img = interpolate(grayscale(img), img, colorFactor)
	img = convolve3x3(img, detailKernel, detailKernelScale)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", model.ErrPipeline, err)
	}
	return buf.Bytes(), nil
}

// toRGB normalizes any decoded image to a 3-channel representation, dropping
// alpha and palettes. NRGBA is used as the backing store with alpha forced
// opaque.
func toRGB(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// boundResize scales the image down so the longer edge equals exactly bound,
// preserving aspect ratio. Images already within the bound keep their native
// resolution; nothing is ever upscaled.
func boundResize(img *image.NRGBA, bound int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if long <= bound {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = bound
		nh = h * bound / w
	} else {
		nh = bound
		nw = w * bound / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// unsharpMask amplifies local contrast at edges: for each channel, the
// difference against a Gaussian-blurred copy is scaled by amount and added
// back. Differences below threshold are left unchanged so flat-region noise
// is not amplified.
func unsharpMask(img *image.NRGBA, radius, amount float64, threshold int) *image.NRGBA {
	blurred := gaussianBlur(img, radius)
	out := cloneNRGBA(img)

	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			o := int(img.Pix[i+c])
			bl := int(blurred.Pix[i+c])
			diff := o - bl
			if diff < threshold && -diff < threshold {
				continue
			}
			out.Pix[i+c] = clampByte(float64(o) + amount*float64(diff))
		}
	}
	return out
}

// gaussianBlur applies a separable Gaussian with the given radius as the
// standard deviation. Edges are clamp-replicated.
func gaussianBlur(img *image.NRGBA, radius float64) *image.NRGBA {
	half := int(math.Ceil(radius * 3))
	if half < 1 {
		half = 1
	}
	kernel := make([]float64, 2*half+1)
	var sum float64
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / (2 * radius * radius))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// horizontal pass
	tmp := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for k, kw := range kernel {
				sx := clampInt(x+k-half, 0, w-1)
				off := y*img.Stride + sx*4
				acc[0] += kw * float64(img.Pix[off])
				acc[1] += kw * float64(img.Pix[off+1])
				acc[2] += kw * float64(img.Pix[off+2])
			}
			off := y*tmp.Stride + x*4
			tmp.Pix[off] = clampByte(acc[0])
			tmp.Pix[off+1] = clampByte(acc[1])
			tmp.Pix[off+2] = clampByte(acc[2])
			tmp.Pix[off+3] = 0xff
		}
	}

	// vertical pass
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for k, kw := range kernel {
				sy := clampInt(y+k-half, 0, h-1)
				off := sy*tmp.Stride + x*4
				acc[0] += kw * float64(tmp.Pix[off])
				acc[1] += kw * float64(tmp.Pix[off+1])
				acc[2] += kw * float64(tmp.Pix[off+2])
			}
			off := y*dst.Stride + x*4
			dst.Pix[off] = clampByte(acc[0])
			dst.Pix[off+1] = clampByte(acc[1])
			dst.Pix[off+2] = clampByte(acc[2])
			dst.Pix[off+3] = 0xff
		}
	}
	return dst
}

// convolve3x3 applies a normalized 3x3 kernel. Border pixels are copied from
// the source unprocessed.
func convolve3x3(img *image.NRGBA, kernel [9]float64, scale float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := cloneNRGBA(img)
	if w < 3 || h < 3 {
		return out
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			for c := 0; c < 3; c++ {
				var acc float64
				ki := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						off := (y+dy)*img.Stride + (x+dx)*4 + c
						acc += kernel[ki] * float64(img.Pix[off])
						ki++
					}
				}
				out.Pix[y*out.Stride+x*4+c] = clampByte(acc / scale)
			}
		}
	}
	return out
}

// interpolate blends the degenerate image toward the original by factor:
// out = degenerate + factor*(original-degenerate). Factor 1.0 reproduces the
// original; factors above 1.0 push past it.
func interpolate(degenerate, original *image.NRGBA, factor float64) *image.NRGBA {
	out := cloneNRGBA(original)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float64(degenerate.Pix[i+c])
			o := float64(original.Pix[i+c])
			out.Pix[i+c] = clampByte(d + factor*(o-d))
		}
	}
	return out
}

// grayscale returns the ITU-R 601 luma image used as the degenerate input for
// the color factor.
func grayscale(img *image.NRGBA) *image.NRGBA {
	out := cloneNRGBA(img)
	for i := 0; i < len(out.Pix); i += 4 {
		l := luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		out.Pix[i] = l
		out.Pix[i+1] = l
		out.Pix[i+2] = l
	}
	return out
}

// meanGrayImage returns a uniform image at the mean luma, the degenerate
// input for the contrast factor.
func meanGrayImage(img *image.NRGBA) *image.NRGBA {
	var total uint64
	var count uint64
	for i := 0; i < len(img.Pix); i += 4 {
		total += uint64(luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
		count++
	}
	mean := byte(0)
	if count > 0 {
		mean = byte((total + count/2) / count)
	}

	out := cloneNRGBA(img)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = mean
		out.Pix[i+1] = mean
		out.Pix[i+2] = mean
	}
	return out
}

func luma(r, g, b byte) byte {
	return byte((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
