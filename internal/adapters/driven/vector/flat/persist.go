package flat

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/custodia-labs/finsight/internal/logger"
)

// File layout of <name>.vec: a 16-byte header (magic, version, dimension,
// count as little-endian uint32) followed by count*dimension float32 values.
// <name>.texts.json holds the parallel JSON array of texts.
const (
	vectorExt   = ".vec"
	textsExt    = ".texts.json"
	magic       = "FVEC"
	version     = 1
	headerBytes = 16
)

var errCorruptIndex = errors.New("corrupt index file")

// Persist writes the index entries under name in the index directory.
// Files are written to a temporary path and renamed into place.
func (x *Index) Persist(name string) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid index name %q", name)
	}

	x.mu.RLock()
	blob := encodeVectors(x.vectors, x.dimension)
	texts, err := json.Marshal(nonNil(x.texts))
	x.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode texts: %w", err)
	}

	if err := os.MkdirAll(x.dir, 0700); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	if err := writeFileAtomic(x.path(name, vectorExt), blob); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := writeFileAtomic(x.path(name, textsExt), texts); err != nil {
		return fmt.Errorf("write texts: %w", err)
	}
	return nil
}

// Restore loads entries persisted under name, replacing the current ones.
// It returns false and leaves the index untouched when either file is
// missing or the two files disagree with each other or with the index.
func (x *Index) Restore(name string) bool {
	vectors, texts, err := x.load(name)
	if err != nil {
		logger.Debug("Index restore %q skipped: %v", name, err)
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = vectors
	x.texts = texts
	return true
}

func (x *Index) load(name string) ([][]float32, []string, error) {
	blob, err := os.ReadFile(x.path(name, vectorExt))
	if err != nil {
		return nil, nil, err
	}
	rawTexts, err := os.ReadFile(x.path(name, textsExt))
	if err != nil {
		return nil, nil, err
	}

	vectors, err := decodeVectors(blob, x.dimension)
	if err != nil {
		return nil, nil, err
	}

	var texts []string
	if err := json.Unmarshal(rawTexts, &texts); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errCorruptIndex, err)
	}
	if len(texts) != len(vectors) {
		return nil, nil, fmt.Errorf("%w: %d vectors, %d texts", errCorruptIndex, len(vectors), len(texts))
	}
	return vectors, texts, nil
}

func (x *Index) path(name, ext string) string {
	return filepath.Join(x.dir, name+ext)
}

func encodeVectors(vectors [][]float32, dim int) []byte {
	buf := make([]byte, headerBytes+len(vectors)*dim*4)
	copy(buf, magic)
	binary.LittleEndian.PutUint32(buf[4:], version)
	binary.LittleEndian.PutUint32(buf[8:], uint32(dim))
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(vectors)))

	off := headerBytes
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

// decodeVectors parses a .vec blob whose vectors must have dimension dim.
// The header is checked against dim and the blob length before anything
// is allocated.
func decodeVectors(data []byte, dim int) ([][]float32, error) {
	if len(data) < headerBytes || string(data[:4]) != magic {
		return nil, fmt.Errorf("%w: bad header", errCorruptIndex)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", errCorruptIndex, v)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: index dimension %d", errCorruptIndex, dim)
	}

	gotDim := int64(binary.LittleEndian.Uint32(data[8:]))
	count := int64(binary.LittleEndian.Uint32(data[12:]))
	if gotDim != int64(dim) {
		return nil, fmt.Errorf("%w: persisted dimension %d, index has %d", errCorruptIndex, gotDim, dim)
	}
	body := int64(len(data) - headerBytes)
	rowBytes := int64(dim) * 4
	if body%rowBytes != 0 || body/rowBytes != count {
		return nil, fmt.Errorf("%w: header says %d vectors, body holds %d bytes", errCorruptIndex, count, body)
	}

	vectors := make([][]float32, count)
	off := headerBytes
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = v
	}
	return vectors, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func nonNil(texts []string) []string {
	if texts == nil {
		return []string{}
	}
	return texts
}
