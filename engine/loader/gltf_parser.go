package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/riwanou/wgpu-lua-fun/common"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// gltfParser decodes one glTF or GLB file and reads typed accessor data out of its buffers.
// External buffer URIs are resolved relative to the file, inside the same file system.
type gltfParser struct {
	fsys     fs.FS
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

func newGLTFParser(fsys fs.FS) *gltfParser {
	return &gltfParser{fsys: fsys}
}

// parse reads name from the parser's file system, detecting GLB by extension or magic number.
func (p *gltfParser) parse(name string) error {
	p.baseDir = path.Dir(name)

	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if strings.EqualFold(path.Ext(name), ".glb") || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParser) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// parseGLB splits a GLB container into its JSON and BIN chunks.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParser) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.binChunk = body
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.parseJSON(jsonData)
}

func (p *gltfParser) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := fs.ReadFile(p.fsys, path.Join(p.baseDir, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: failed to load %q: %w", i, buf.URI, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.Index(uri, ",")
	if comma < 0 {
		return nil, errInvalidBufferURI
	}
	if header := uri[len("data:"):comma]; !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// accessorElements returns each element of an accessor as its own byte slice, honouring the
// buffer view stride.
func (p *gltfParser) accessorElements(index int, wantType string) (*gltfAccessor, [][]byte, error) {
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &p.document.Accessors[index]
	if acc.Type != wantType {
		return nil, nil, fmt.Errorf("accessor %d is %s, want %s", index, acc.Type, wantType)
	}
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: sparse accessors not supported", index)
	}
	if acc.BufferView == nil || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d has no bufferView", index)
	}
	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.Buffer >= len(p.document.Buffers) {
		return nil, nil, fmt.Errorf("bufferView %d: buffer %d out of range", *acc.BufferView, bv.Buffer)
	}
	data := p.document.Buffers[bv.Buffer].Data

	elemSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elemSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported component type %d", index, acc.ComponentType)
	}
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && start+(acc.Count-1)*stride+elemSize > len(data) {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errBufferSizeMismatch)
	}
	elems := make([][]byte, acc.Count)
	for i := range elems {
		off := start + i*stride
		elems[i] = data[off : off+elemSize]
	}
	return acc, elems, nil
}

func (p *gltfParser) readFloats(index int, wantType string, n int) ([][]float32, error) {
	acc, elems, err := p.accessorElements(index, wantType)
	if err != nil {
		return nil, err
	}
	if acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d is not FLOAT: componentType=%d", index, acc.ComponentType)
	}
	out := make([][]float32, len(elems))
	for i, e := range elems {
		v := make([]float32, n)
		for c := range v {
			v[c] = common.Float32At(e, c*4)
		}
		out[i] = v
	}
	return out, nil
}

func (p *gltfParser) readVec3(index int) ([][3]float32, error) {
	raw, err := p.readFloats(index, gltfAccessorTypeVec3, 3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(raw))
	for i, v := range raw {
		out[i] = [3]float32{v[0], v[1], v[2]}
	}
	return out, nil
}

func (p *gltfParser) readVec2(index int) ([][2]float32, error) {
	raw, err := p.readFloats(index, gltfAccessorTypeVec2, 2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, len(raw))
	for i, v := range raw {
		out[i] = [2]float32{v[0], v[1]}
	}
	return out, nil
}

func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	acc, elems, err := p.accessorElements(index, gltfAccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(e[0])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
		}
	}
	return out, nil
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

func componentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	default:
		return 0
	}
}
