package client

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/rascol/lpximage/lpx"
)

// magnifyRaster blocks up raster by an integer factor using
// nearest-neighbor scaling, giving a crisp per-cell debug view that a
// bilinear window resize would blur.
func magnifyRaster(raster *lpx.Raster, factor int) *lpx.Raster {
	src := &image.RGBA{
		Pix:    raster.Pix,
		Stride: raster.Stride,
		Rect:   image.Rect(0, 0, raster.Width, raster.Height),
	}
	dstW, dstH := raster.Width*factor, raster.Height*factor
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return &lpx.Raster{Width: dstW, Height: dstH, Stride: dst.Stride, Pix: dst.Pix}
}
