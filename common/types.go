package common

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds decoded RGBA8 pixel data ready for upload to a GPU texture.
type TextureStagingData struct {
	Pixels []byte
	Width  uint32
	Height uint32
}

// SamplerStagingData holds the sampler configuration used when creating a GPU sampler.
// Zero-valued fields fall back to linear filtering with repeat addressing.
type SamplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	Compare                                  wgpu.CompareFunction
	MaxAnisotropy                            uint16
}

// MeshStagingData holds interleaved vertex bytes and uint32 index bytes ready for upload.
type MeshStagingData struct {
	Vertices   []byte
	Indices    []byte
	IndexCount int
}

// DecodeTexture decodes a PNG or JPEG image from r into tightly packed RGBA8 staging data.
//
// Parameters:
//   - r: reader positioned at the start of an encoded image
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: an error if the image could not be decoded
func DecodeTexture(r io.Reader) (TextureStagingData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}
