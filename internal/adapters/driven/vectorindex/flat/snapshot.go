package flat

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure SnapshotFile implements the interface.
var _ driven.SnapshotStore = (*SnapshotFile)(nil)

// snapshotMagic opens every snapshot file.
var snapshotMagic = [8]byte{'T', 'R', 'N', 'I', 'D', 'X', '0', '1'}

// Bounds applied when reading a snapshot header.
const (
	maxHeaderLen = 1 << 20
	maxDimension = 1 << 16
	maxCount     = 1 << 28
)

// snapshotHeader is the JSON header written after the magic.
type snapshotHeader struct {
	ID        string    `json:"id"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotFile persists a flat index as a single file:
//
//	magic | header length (uint32) | JSON header | ids (int64 x count) | vectors (float32 x count x dim) | crc32
//
// All integers are little-endian. The file is replaced atomically on save.
type SnapshotFile struct {
	path string
}

// NewSnapshotFile creates a snapshot store at path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the snapshot location.
func (f *SnapshotFile) Path() string {
	return f.path
}

// Save writes idx to a temporary file and renames it over the snapshot.
func (f *SnapshotFile) Save(idx driven.VectorIndex, meta driven.SnapshotMeta) error {
	flat, ok := idx.(*Index)
	if !ok {
		return fmt.Errorf("flat: %w: cannot snapshot %T", domain.ErrUnsupportedType, idx)
	}
	ids, data := flat.vectors()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("flat: create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("flat: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := encode(tmp, flat.Dimension(), ids, data, meta); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flat: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flat: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("flat: publish snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file is domain.ErrNotFound.
func (f *SnapshotFile) Load() (driven.VectorIndex, driven.SnapshotMeta, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, driven.SnapshotMeta{}, fmt.Errorf("flat: snapshot %s: %w", f.path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, driven.SnapshotMeta{}, fmt.Errorf("flat: open snapshot: %w", err)
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return nil, driven.SnapshotMeta{}, fmt.Errorf("flat: stat snapshot: %w", err)
	}
	return decode(file, st.Size())
}

func encode(w io.Writer, dimension int, ids []int64, data []float32, meta driven.SnapshotMeta) error {
	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))

	header, err := json.Marshal(snapshotHeader{
		ID:        meta.ID,
		Dimension: dimension,
		Count:     len(ids),
		CreatedAt: meta.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("flat: encode header: %w", err)
	}

	if _, err := bw.Write(snapshotMagic[:]); err != nil {
		return fmt.Errorf("flat: write snapshot: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(header))); err != nil {
		return fmt.Errorf("flat: write snapshot: %w", err)
	}
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("flat: write snapshot: %w", err)
	}

	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("flat: write snapshot: %w", err)
		}
	}
	for _, v := range data {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
		if _, err := bw.Write(buf[:4]); err != nil {
			return fmt.Errorf("flat: write snapshot: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flat: write snapshot: %w", err)
	}

	binary.LittleEndian.PutUint32(buf[:4], crc.Sum32())
	if _, err := w.Write(buf[:4]); err != nil {
		return fmt.Errorf("flat: write checksum: %w", err)
	}
	return nil
}

// decode reads a snapshot of size bytes. The body length implied by the
// header must match what is left of the file before anything is allocated.
func decode(r io.Reader, size int64) (driven.VectorIndex, driven.SnapshotMeta, error) {
	crc := crc32.NewIEEE()
	br := io.TeeReader(bufio.NewReader(r), crc)
	corrupt := func(what string, err error) error {
		if err != nil {
			return fmt.Errorf("flat: %w: %s: %w", domain.ErrCorruptSnapshot, what, err)
		}
		return fmt.Errorf("flat: %w: %s", domain.ErrCorruptSnapshot, what)
	}

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, driven.SnapshotMeta{}, corrupt("read magic", err)
	}
	if magic != snapshotMagic {
		return nil, driven.SnapshotMeta{}, corrupt("bad magic", nil)
	}

	var headerLen uint32
	if err := binary.Read(br, binary.LittleEndian, &headerLen); err != nil {
		return nil, driven.SnapshotMeta{}, corrupt("read header length", err)
	}
	if headerLen > maxHeaderLen {
		return nil, driven.SnapshotMeta{}, corrupt("header too large", nil)
	}
	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, driven.SnapshotMeta{}, corrupt("read header", err)
	}
	var h snapshotHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, driven.SnapshotMeta{}, corrupt("decode header", err)
	}
	if h.Dimension <= 0 || h.Dimension > maxDimension || h.Count < 0 || h.Count > maxCount {
		return nil, driven.SnapshotMeta{}, corrupt("invalid header", nil)
	}
	// Bounded above by maxCount*(8+4*maxDimension), well inside int64.
	body := int64(h.Count)*(8+4*int64(h.Dimension)) + 4
	if remaining := size - int64(len(snapshotMagic)) - 4 - int64(headerLen); body != remaining {
		return nil, driven.SnapshotMeta{}, corrupt(fmt.Sprintf("header expects %d body bytes, file has %d", body, remaining), nil)
	}

	idx := New(h.Dimension)
	idx.ids = make([]int64, h.Count)
	idx.data = make([]float32, h.Count*h.Dimension)

	var buf [8]byte
	for i := range idx.ids {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, driven.SnapshotMeta{}, corrupt("read ids", err)
		}
		idx.ids[i] = int64(binary.LittleEndian.Uint64(buf[:]))
	}
	for i := range idx.data {
		if _, err := io.ReadFull(br, buf[:4]); err != nil {
			return nil, driven.SnapshotMeta{}, corrupt("read vectors", err)
		}
		idx.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))
	}

	want := crc.Sum32()
	if _, err := io.ReadFull(br, buf[:4]); err != nil {
		return nil, driven.SnapshotMeta{}, corrupt("read checksum", err)
	}
	if got := binary.LittleEndian.Uint32(buf[:4]); got != want {
		return nil, driven.SnapshotMeta{}, corrupt("checksum mismatch", nil)
	}

	meta := driven.SnapshotMeta{ID: h.ID, Dimension: h.Dimension, Count: h.Count, CreatedAt: h.CreatedAt}
	return idx, meta, nil
}
