package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// container is the split form of a loaded file: the JSON document bytes plus the optional
// GLB binary chunk.
type container struct {
	json   []byte
	binary []byte
	glb    bool
}

// isGLBName reports whether a file name or URL names a GLB container.
// The query string is ignored and the suffix test is case-insensitive.
func isGLBName(filename string) bool {
	if i := strings.IndexByte(filename, '?'); i >= 0 {
		filename = filename[:i]
	}
	return strings.HasSuffix(strings.ToLower(filename), ".glb")
}

// readContainer splits a loaded file into its JSON and binary parts. Files not named *.glb are
// treated as plain glTF JSON with no binary chunk.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func readContainer(filename string, data []byte) (*container, error) {
	if !isGLBName(filename) {
		return &container{json: data}, nil
	}
	return parseGLB(data)
}

// parseGLB validates the 12-byte header and walks the chunk list.
func parseGLB(data []byte) (*container, error) {
	if len(data) < 12 {
		return nil, mismatchError(KindMalformedContainer, "header", "12 bytes", fmt.Sprintf("%d bytes", len(data)))
	}

	var header gltfGLBHeader
	if err := binary.Read(bytes.NewReader(data[:12]), binary.LittleEndian, &header); err != nil {
		return nil, newLoadError(KindMalformedContainer, err, "header")
	}

	if header.Magic != gltfGLBMagic {
		return nil, mismatchError(KindMalformedContainer, "magic", fmt.Sprintf("0x%08X", gltfGLBMagic), fmt.Sprintf("0x%08X", header.Magic))
	}
	if header.Version != gltfGLBVersion {
		return nil, mismatchError(KindMalformedContainer, "version", gltfGLBVersion, header.Version)
	}
	if header.Length == 0 || int(header.Length) > len(data) {
		return nil, mismatchError(KindMalformedContainer, "length", fmt.Sprintf("1..%d", len(data)), header.Length)
	}

	length := int(header.Length)
	var chunks []gltfGLBChunkHeader
	var payloads [][]byte
	for offset := 12; offset < length; {
		if offset+8 > len(data) {
			return nil, mismatchError(KindMalformedContainer, "chunkHeader", "8 bytes", fmt.Sprintf("%d bytes", len(data)-offset))
		}
		var ch gltfGLBChunkHeader
		if err := binary.Read(bytes.NewReader(data[offset:offset+8]), binary.LittleEndian, &ch); err != nil {
			return nil, newLoadError(KindMalformedContainer, err, "chunkHeader")
		}
		end := offset + 8 + int(ch.ChunkLength)
		if end > len(data) {
			return nil, mismatchError(KindMalformedContainer, "chunkLength", fmt.Sprintf("<= %d", len(data)-offset-8), ch.ChunkLength)
		}
		chunks = append(chunks, ch)
		payloads = append(payloads, data[offset+8:end])
		offset = end
	}

	if len(chunks) < 1 || len(chunks) > 2 {
		return nil, mismatchError(KindMalformedContainer, "chunkCount", "1 or 2", len(chunks))
	}
	if chunks[0].ChunkType != gltfGLBChunkJSON {
		return nil, mismatchError(KindMalformedContainer, "chunkType", fmt.Sprintf("0x%08X", gltfGLBChunkJSON), fmt.Sprintf("0x%08X", chunks[0].ChunkType))
	}

	c := &container{json: payloads[0], glb: true}
	if len(chunks) == 2 {
		if chunks[1].ChunkType != gltfGLBChunkBIN {
			return nil, mismatchError(KindMalformedContainer, "chunkType", fmt.Sprintf("0x%08X", gltfGLBChunkBIN), fmt.Sprintf("0x%08X", chunks[1].ChunkType))
		}
		c.binary = payloads[1]
	}
	return c, nil
}

// leadingFloat matches the numeric prefix a lenient float parser would accept.
var leadingFloat = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseVersion reads the leading number of a version string ("2.0", "2.1-beta").
// It returns NaN when the string has no numeric prefix.
func parseVersion(s string) float64 {
	m := leadingFloat.FindString(s)
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseDocument unmarshals the JSON chunk and rejects assets older than glTF 2.0.
// A missing or non-numeric version is accepted.
func parseDocument(data []byte) (*gltfDocument, error) {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newLoadError(KindMalformedContainer, err, "json")
	}
	if doc.Asset.Version != "" && parseVersion(doc.Asset.Version) < 2 {
		return nil, mismatchError(KindUnsupportedGltfVersion, "asset.version", "2.0 or above", doc.Asset.Version)
	}
	if err := validateLayout(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// validateLayout rejects negative sizes and offsets in bufferViews and accessors, so that
// decoding only has to bounds check against the resolved data.
func validateLayout(doc *gltfDocument) error {
	for i, v := range doc.BufferViews {
		if v.ByteOffset < 0 {
			return mismatchError(KindInvalidAsset, fmt.Sprintf("bufferViews[%d].byteOffset", i), ">= 0", v.ByteOffset)
		}
		if v.ByteLength < 0 {
			return mismatchError(KindInvalidAsset, fmt.Sprintf("bufferViews[%d].byteLength", i), ">= 0", v.ByteLength)
		}
		if v.ByteStride != nil && *v.ByteStride < 0 {
			return mismatchError(KindInvalidAsset, fmt.Sprintf("bufferViews[%d].byteStride", i), ">= 0", *v.ByteStride)
		}
	}
	for i, a := range doc.Accessors {
		if a.Count < 0 {
			return mismatchError(KindInvalidAsset, fmt.Sprintf("accessors[%d].count", i), ">= 0", a.Count)
		}
		if a.ByteOffset < 0 {
			return mismatchError(KindInvalidAsset, fmt.Sprintf("accessors[%d].byteOffset", i), ">= 0", a.ByteOffset)
		}
		sp := a.Sparse
		if sp == nil {
			continue
		}
		if sp.Count < 0 || sp.Count > a.Count {
			return mismatchError(KindInvalidAsset, fmt.Sprintf("accessors[%d].sparse.count", i), fmt.Sprintf("0..%d", a.Count), sp.Count)
		}
		if sp.Indices.ByteOffset < 0 || sp.Values.ByteOffset < 0 {
			return newLoadError(KindInvalidAsset, nil, "accessors[%d].sparse byteOffset", i)
		}
	}
	return nil
}
