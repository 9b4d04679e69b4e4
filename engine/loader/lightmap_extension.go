package loader

import (
	"encoding/json"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/sirupsen/logrus"
)

// lightmapData is one entry of the root EPIC_lightmap_textures.lightmaps table.
type lightmapData struct {
	LightmapAdd         []float32 `json:"lightmapAdd"`
	LightmapScale       []float32 `json:"lightmapScale"`
	CoordinateScaleBias []float32 `json:"coordinateScaleBias"`
	Texture             *struct {
		Index    *int `json:"index"`
		TexCoord *int `json:"texCoord,omitempty"`
	} `json:"texture"`
}

// lightmapRoot is the root EPIC_lightmap_textures payload.
type lightmapRoot struct {
	Lightmaps []lightmapData `json:"lightmaps"`
}

// lightmapNodeRef is the node EPIC_lightmap_textures payload.
type lightmapNodeRef struct {
	Lightmap *int `json:"lightmap"`
}

type pendingLightmap struct {
	node  *scene.Node
	index int
	data  lightmapData
}

// lightmapExtensionParser attaches baked lightmaps to nodes. Nodes name an entry of the root
// lightmap table; once textures exist, every complete entry becomes a scene.NodeLightmap.
// References that cannot be resolved are logged and skipped.
type lightmapExtensionParser struct {
	mu      sync.Mutex
	pending []pendingLightmap
	logger  logrus.FieldLogger
}

var _ ExtensionParser = &lightmapExtensionParser{}

// NewLightmapExtensionParser creates the EPIC_lightmap_textures parser. Use one instance per load.
//
// Returns:
//   - ExtensionParser: the parser
func NewLightmapExtensionParser() ExtensionParser {
	return &lightmapExtensionParser{logger: logrus.StandardLogger()}
}

func (p *lightmapExtensionParser) Name() string {
	return extLightmapTextures
}

func (p *lightmapExtensionParser) Register(registry *ExtensionRegistry) {
	p.logger = registry.logger
	registry.Node.Add(p.Name(), ExtensionParsers[*scene.Node]{
		PostParse: p.nodePostParse,
	})
}

func (p *lightmapExtensionParser) Unregister(registry *ExtensionRegistry) {
	registry.Node.Remove(p.Name())
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

func (p *lightmapExtensionParser) PostParse(asset *Asset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pl := range p.pending {
		d := pl.data
		log := p.logger.WithFields(logrus.Fields{"node": pl.node.Name, "lightmap": pl.index})
		if d.CoordinateScaleBias == nil || d.LightmapAdd == nil || d.LightmapScale == nil ||
			d.Texture == nil || d.Texture.Index == nil {
			log.Warn("lightmap entry is incomplete")
			continue
		}
		idx := *d.Texture.Index
		if idx < 0 || idx >= len(asset.Textures) || asset.Textures[idx] == nil {
			log.WithField("texture", idx).Warn("lightmap texture not found")
			continue
		}
		texCoord := 0
		if d.Texture.TexCoord != nil {
			texCoord = *d.Texture.TexCoord
		}
		pl.node.Lightmap = &scene.NodeLightmap{
			Texture:             asset.Textures[idx],
			TexCoord:            texCoord,
			LightmapAdd:         d.LightmapAdd,
			LightmapScale:       d.LightmapScale,
			CoordinateScaleBias: d.CoordinateScaleBias,
		}
	}
	return nil
}

func (p *lightmapExtensionParser) nodePostParse(node *scene.Node, raw json.RawMessage, root *Root) error {
	var ref lightmapNodeRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return err
	}
	if ref.Lightmap == nil {
		return nil
	}
	i := *ref.Lightmap
	log := p.logger.WithFields(logrus.Fields{"node": node.Name, "lightmap": i})
	rootRaw, ok := root.Extension(extLightmapTextures)
	if !ok {
		log.Warn("lightmap data missing")
		return nil
	}
	var table lightmapRoot
	if err := json.Unmarshal(rootRaw, &table); err != nil {
		return err
	}
	if i < 0 || i >= len(table.Lightmaps) {
		log.WithField("lightmaps", len(table.Lightmaps)).Warn("lightmap index out of range")
		return nil
	}

	p.mu.Lock()
	p.pending = append(p.pending, pendingLightmap{node: node, index: i, data: table.Lightmaps[i]})
	p.mu.Unlock()
	return nil
}
