package loader

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
)

// mimeTypeExtensions maps image mime types to the file extension a texture file is named with.
var mimeTypeExtensions = map[string]string{
	"image/png":        "png",
	"image/jpeg":       "jpg",
	"image/basis":      "basis",
	"image/ktx":        "ktx",
	"image/ktx2":       "ktx2",
	"image/vnd-ms.dds": "dds",
}

// probedMimeTypes maps image.DecodeConfig format names to mime types.
var probedMimeTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// textureLoader turns glTF textures into model.Texture records. Each image is read once.
type textureLoader struct {
	doc      *gltfDocument
	views    []bufferView
	urlBase  string
	fetcher  *resourceFetcher
	registry *ExtensionRegistry

	// counter numbers texture names across every load of one Loader.
	counter *atomic.Int64
}

// imageSource is the resolved origin of one image, before its bytes are read.
type imageSource struct {
	url      string
	dataURI  bool
	view     *bufferView
	mimeType string
}

// textureImageIndex picks the image a texture samples: KHR_texture_basisu.source when present,
// else source.
func textureImageIndex(t *gltfTexture) (int, bool, error) {
	var basisu khrTextureBasisu
	found, err := decodeExtension(t.Extensions, extTextureBasisu, &basisu)
	if err != nil {
		return 0, false, err
	}
	if found && basisu.Source != nil {
		return *basisu.Source, true, nil
	}
	if t.Source != nil {
		return *t.Source, true, nil
	}
	return 0, false, nil
}

// loadTextures builds one model.Texture per glTF texture. Textures sharing an image receive a
// deep copy of the first texture's record, named "<name>_clone", sharing the image bytes.
func (tl *textureLoader) loadTextures(ctx context.Context) ([]*model.Texture, error) {
	doc := tl.doc
	if len(doc.Images) == 0 || len(doc.Textures) == 0 {
		return []*model.Texture{}, nil
	}

	imageOf := make([]int, len(doc.Textures))
	var order []int
	needed := make(map[int]bool)
	for i := range doc.Textures {
		idx, ok, err := textureImageIndex(&doc.Textures[i])
		if err != nil {
			return nil, newLoadError(KindInvalidAsset, err, "textures[%d].extensions", i)
		}
		if !ok || idx < 0 || idx >= len(doc.Images) {
			return nil, newLoadError(KindInvalidAsset, nil, "textures[%d] image %d", i, idx)
		}
		imageOf[i] = idx
		if !needed[idx] {
			needed[idx] = true
			order = append(order, idx)
		}
	}

	images, err := tl.loadImages(ctx, order)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Texture, len(doc.Textures))
	used := make(map[int]bool)
	for i := range doc.Textures {
		first := images[imageOf[i]]
		tex := first
		if used[imageOf[i]] {
			tex = &model.Texture{}
			if err := deepcopy.Copy(tex, first); err != nil {
				return nil, newLoadError(KindInvalidAsset, err, "textures[%d] clone", i)
			}
			tex.ID = uuid.NewString()
			tex.Name = first.Name + "_clone"
			tex.Data = first.Data
			tex.Clone = true
		}
		used[imageOf[i]] = true

		var sampler *gltfSampler
		if s := doc.Textures[i].Sampler; s != nil {
			if *s < 0 || *s >= len(doc.Samplers) {
				return nil, newLoadError(KindInvalidAsset, nil, "textures[%d].sampler %d", i, *s)
			}
			sampler = &doc.Samplers[*s]
		}
		tex.Sampler = gltfSamplerDescriptor(sampler)
		result[i] = tex

		if tl.registry != nil {
			if err := tl.registry.Texture.PostParse(tex, doc.Textures[i].Extensions); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// loadImages reads every listed image. External URLs are fetched concurrently.
func (tl *textureLoader) loadImages(ctx context.Context, order []int) (map[int]*model.Texture, error) {
	sources := make(map[int]imageSource, len(order))
	var urls []string
	var pending []int
	for _, idx := range order {
		img := &tl.doc.Images[idx]
		switch {
		case img.URI != "" && isDataURI(img.URI):
			_, mime, _ := decodeDataURI(img.URI)
			sources[idx] = imageSource{url: img.URI, dataURI: true, mimeType: mime}
		case img.URI != "":
			u := joinURL(tl.urlBase, img.URI)
			sources[idx] = imageSource{url: u, mimeType: img.MimeType}
			urls = append(urls, u)
			pending = append(pending, idx)
		case img.BufferView != nil && img.MimeType != "":
			if *img.BufferView < 0 || *img.BufferView >= len(tl.views) {
				return nil, newLoadError(KindMissingBufferSource, nil, "images[%d].bufferView %d", idx, *img.BufferView)
			}
			sources[idx] = imageSource{view: &tl.views[*img.BufferView], mimeType: img.MimeType}
		default:
			return nil, newLoadError(KindMissingBufferSource, nil, "images[%d]: neither uri nor bufferView", idx)
		}
	}

	fetched := make(map[int][]byte, len(pending))
	for j, res := range tl.fetcher.fetchAll(ctx, urls) {
		if res.err != nil {
			return nil, newLoadError(KindFetchFailure, res.err, "images[%d] %s", pending[j], urls[j])
		}
		fetched[pending[j]] = res.data
	}

	out := make(map[int]*model.Texture, len(order))
	for _, idx := range order {
		img := &tl.doc.Images[idx]
		src := sources[idx]

		var data []byte
		switch {
		case src.dataURI:
			d, _, err := decodeDataURI(src.url)
			if err != nil {
				return nil, newLoadError(KindInvalidAsset, err, "images[%d]", idx)
			}
			data = d
		case src.view != nil:
			data = src.view.data
		default:
			data = fetched[idx]
		}
		if len(data) == 0 {
			return nil, newLoadError(KindInvalidAsset, nil, "images[%d]: empty image", idx)
		}

		name := fmt.Sprintf("%s-%d", common.Coalesce(img.Name, "gltf-texture"), tl.counter.Add(1)-1)
		tex := &model.Texture{
			ID:         uuid.NewString(),
			Name:       name,
			ImageIndex: idx,
			MimeType:   src.mimeType,
			Data:       data,
		}
		if !src.dataURI {
			tex.URL = src.url
		}

		if info, err := common.ProbeImage(data); err == nil {
			tex.Info = info
			if tex.MimeType == "" {
				tex.MimeType = probedMimeTypes[info.Format]
			}
		}
		if ext, ok := mimeTypeExtensions[tex.MimeType]; ok {
			tex.Filename = common.Coalesce(tex.URL, name) + "." + ext
		}
		out[idx] = tex
	}
	return out, nil
}

// gltfSamplerDescriptor maps a glTF sampler (nil for the default sampler) to sampler state.
// Defaults: min LINEAR_MIPMAP_LINEAR, mag LINEAR, wrap REPEAT. Unknown codes fall back to the defaults.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
func gltfSamplerDescriptor(s *gltfSampler) common.SamplerDescriptor {
	if s == nil {
		s = &gltfSampler{}
	}
	minFilter := gltfFilterOrDefault(s.MinFilter, gltfFilterLinearMipmapLinear)
	magFilter := gltfFilterOrDefault(s.MagFilter, gltfFilterLinear)
	wrapS := gltfWrapOrDefault(s.WrapS)
	wrapT := gltfWrapOrDefault(s.WrapT)

	result := common.SamplerDescriptor{
		AddressModeU: gltfWrapToAddressMode(wrapS),
		AddressModeV: gltfWrapToAddressMode(wrapT),
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		Mipmaps:      true,
		LodMinClamp:  0,
		LodMaxClamp:  32,
		GLMinFilter:  minFilter,
		GLMagFilter:  magFilter,
		GLWrapS:      wrapS,
		GLWrapT:      wrapT,
	}

	if magFilter == gltfFilterNearest {
		result.MagFilter = wgpu.FilterModeNearest
	}

	switch minFilter {
	case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
		result.MinFilter = wgpu.FilterModeNearest
	}
	// Also set the mipmap filter based on the minification filter variant
	switch minFilter {
	case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest:
		result.MipmapFilter = wgpu.MipmapFilterModeNearest
	case gltfFilterNearest, gltfFilterLinear:
		// no mip sampling: clamp to the base level
		result.MipmapFilter = wgpu.MipmapFilterModeNearest
		result.Mipmaps = false
		result.LodMaxClamp = 0
	}

	return result
}

func gltfFilterOrDefault(f *int, def int) int {
	if f == nil {
		return def
	}
	switch *f {
	case gltfFilterNearest, gltfFilterLinear,
		gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest,
		gltfFilterNearestMipmapLinear, gltfFilterLinearMipmapLinear:
		return *f
	default:
		return def
	}
}

func gltfWrapOrDefault(w *int) int {
	if w == nil {
		return gltfWrapRepeat
	}
	switch *w {
	case gltfWrapClampToEdge, gltfWrapMirroredRepeat, gltfWrapRepeat:
		return *w
	default:
		return gltfWrapRepeat
	}
}

func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
