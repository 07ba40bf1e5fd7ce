// Package capture records a prepared view for offline inspection. A capture file is a
// short magic header followed by a zstd-compressed msgpack Snapshot.
package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/shadow"
)

// Version is the snapshot layout version.
const Version = 1

var magic = []byte("OXYCAP")

// ErrBadMagic is returned by Read when the stream does not start with a capture header.
var ErrBadMagic = errors.New("capture: bad magic header")

// BatchKind names the payload of a captured batch.
type BatchKind string

const (
	BatchStatic    BatchKind = "static"
	BatchComplex   BatchKind = "complex"
	BatchInstanced BatchKind = "instanced"
)

// Batch is the serializable summary of one batch.
type Batch struct {
	Kind          BatchKind `msgpack:"kind"`
	Geometry      string    `msgpack:"geometry"`
	GeomIndex     int       `msgpack:"geomIndex"`
	Pass          string    `msgpack:"pass"`
	PassID        uint32    `msgpack:"passId"`
	LightMask     uint8     `msgpack:"lightMask"`
	Distance      float32   `msgpack:"distance"`
	InstanceStart int       `msgpack:"instanceStart,omitempty"`
	InstanceCount int       `msgpack:"instanceCount,omitempty"`
}

// ShadowView is the serializable summary of one shadow view.
type ShadowView struct {
	Index      int         `msgpack:"index"`
	Viewport   common.Rect `msgpack:"viewport"`
	RenderMode string      `msgpack:"renderMode"`
	Casters    int         `msgpack:"casters"`
	Static     int         `msgpack:"static"`
}

// Light is the serializable summary of one visible light.
type Light struct {
	Type        string       `msgpack:"type"`
	Position    common.Vec3  `msgpack:"position"`
	Direction   common.Vec3  `msgpack:"direction"`
	Color       common.Vec3  `msgpack:"color"`
	Range       float32      `msgpack:"range"`
	ShadowMap   int          `msgpack:"shadowMap"`
	ShadowRect  common.Rect  `msgpack:"shadowRect"`
	ShadowViews []ShadowView `msgpack:"shadowViews"`
}

// Snapshot is one prepared view.
type Snapshot struct {
	Version  int            `msgpack:"version"`
	Name     string         `msgpack:"name"`
	Frame    uint32         `msgpack:"frame"`
	Stats    renderer.Stats `msgpack:"stats"`
	Opaque   []Batch        `msgpack:"opaque"`
	Alpha    []Batch        `msgpack:"alpha"`
	DirLight *Light         `msgpack:"dirLight,omitempty"`
	Lights   []Light        `msgpack:"lights"`
	Clusters []byte         `msgpack:"clusters"`
}

// FromView summarizes the current state of a view renderer. Call it after PrepareView and
// before the next frame starts.
//
// Parameters:
//   - name: label stored in the snapshot, typically the scene name
//   - vr: the view renderer
//
// Returns:
//   - *Snapshot: the snapshot
func FromView(name string, vr renderer.ViewRenderer) *Snapshot {
	s := &Snapshot{
		Version: Version,
		Name:    name,
		Frame:   vr.FrameNumber(),
		Stats:   vr.Stats(),
		Opaque:  batches(vr.OpaqueQueue()),
		Alpha:   batches(vr.AlphaQueue()),
	}
	if dl := vr.DirLight(); dl != nil {
		l := lightOf(dl, vr.ShadowMap(shadow.DirectionalMap))
		s.DirLight = &l
	}
	for _, l := range vr.Lights() {
		s.Lights = append(s.Lights, lightOf(l, vr.ShadowMap(shadow.LocalMap)))
	}
	if grid := vr.Clusters(); grid != nil {
		s.Clusters = bytes.Clone(grid.Bytes())
	}
	return s
}

func batches(q *batch.Queue) []Batch {
	if q == nil {
		return nil
	}
	out := make([]Batch, 0, q.Len())
	q.Each(func(_ int, b *batch.Batch) {
		out = append(out, batchOf(b))
	})
	return out
}

func batchOf(b *batch.Batch) Batch {
	out := Batch{
		GeomIndex: b.GeomIndex,
		LightMask: uint8(b.LightMask),
		Distance:  b.Distance,
	}
	if b.Geometry != nil {
		out.Geometry = b.Geometry.Name
	}
	if b.Pass != nil {
		out.Pass = b.Pass.ShaderKey
		out.PassID = b.Pass.ID
	}
	switch p := b.Payload.(type) {
	case batch.Static:
		out.Kind = BatchStatic
	case batch.Complex:
		out.Kind = BatchComplex
	case batch.Instanced:
		out.Kind = BatchInstanced
		out.InstanceStart = p.Start
		out.InstanceCount = p.Count
	}
	return out
}

// lightOf summarizes a light and the views it rendered into m this frame.
func lightOf(l light.Light, m *shadow.Map) Light {
	out := Light{
		Type:       l.Type().String(),
		Position:   l.Position(),
		Direction:  l.Direction(),
		Color:      l.Color(),
		Range:      l.Range(),
		ShadowMap:  l.ShadowMapIndex(),
		ShadowRect: l.ShadowRect(),
	}
	if m == nil {
		return out
	}
	for _, v := range m.Views() {
		if v.Light != l {
			continue
		}
		out.ShadowViews = append(out.ShadowViews, ShadowView{
			Index:      v.Index,
			Viewport:   v.Viewport,
			RenderMode: v.RenderMode.String(),
			Casters:    m.Queue(v.ShadowQueue).Len(),
			Static:     m.Queue(v.StaticQueue).Len(),
		})
	}
	return out
}

// Write encodes the snapshot to w.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: encoding or compression failure
func (s *Snapshot) Write(w io.Writer) error {
	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("capture: write header: %w", err)
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("capture: create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(s); err != nil {
		return fmt.Errorf("capture: encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("capture: close zstd writer: %w", err)
	}
	return nil
}

// Read decodes a snapshot written by Write.
//
// Parameters:
//   - r: the source
//
// Returns:
//   - *Snapshot: the snapshot
//   - error: ErrBadMagic, an unsupported version, or a decoding failure
func Read(r io.Reader) (*Snapshot, error) {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, magic) {
		return nil, ErrBadMagic
	}
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("capture: create zstd reader: %w", err)
	}
	defer zr.Close()

	var s Snapshot
	if err := msgpack.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("capture: decode snapshot: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("capture: unsupported version %d", s.Version)
	}
	return &s, nil
}

// WriteFile writes the snapshot to path, replacing any existing file.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - error: file or encoding failure
func (s *Snapshot) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := s.Write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("capture: %w", err)
	}
	return f.Close()
}

// ReadFile reads a snapshot from path.
//
// Parameters:
//   - path: the capture file
//
// Returns:
//   - *Snapshot: the snapshot
//   - error: file or decoding failure
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}
