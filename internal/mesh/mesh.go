// Package mesh converts finalized solids to STL artifacts on disk and
// loads STL files back into viewer-ready handles. Files created in the
// temporary area are one-shot: they are removed as soon as they have been
// read, while user-chosen permanent paths are never deleted.
package mesh

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hschendel/stl"

	"automodel/internal/cad"
)

// MeshData is the flat representation shipped to the frontend viewer:
// nine coordinates per triangle.
type MeshData struct {
	Name          string    `json:"name,omitempty"`
	TriangleCount int       `json:"triangleCount"`
	Vertices      []float32 `json:"vertices"`
}

// Handle is an in-memory mesh, displayable and saveable.
type Handle struct {
	Name  string
	solid *stl.Solid
}

func (h *Handle) TriangleCount() int {
	return len(h.solid.Triangles)
}

// Data flattens the mesh for the viewer.
func (h *Handle) Data() *MeshData {
	verts := make([]float32, 0, len(h.solid.Triangles)*9)
	for _, t := range h.solid.Triangles {
		for _, v := range t.Vertices {
			verts = append(verts, v[0], v[1], v[2])
		}
	}
	return &MeshData{
		Name:          h.Name,
		TriangleCount: len(h.solid.Triangles),
		Vertices:      verts,
	}
}

// Store manages mesh artifacts on disk.
type Store struct {
	tempDir string
}

func NewStore() *Store {
	return &Store{tempDir: os.TempDir()}
}

// Export writes the solid's boundary as a uniquely named temporary binary
// STL file and returns the path. The caller owns cleanup of the file.
func (s *Store) Export(solid *cad.Solid) (string, error) {
	if solid == nil || len(solid.Triangles) == 0 {
		return "", fmt.Errorf("no solid geometry to export")
	}
	f, err := os.CreateTemp(s.tempDir, "automodel-*.stl")
	if err != nil {
		return "", fmt.Errorf("create temp mesh file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	out := toSTL(solid)
	if err := out.WriteFile(path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write mesh file: %w", err)
	}
	return path, nil
}

// Import reads an STL file into a displayable handle. If the path lies in
// the temporary area the file is removed after the read whether or not it
// succeeded; permanent paths are left alone.
func (s *Store) Import(path string) (*Handle, error) {
	if s.inTempArea(path) {
		defer os.Remove(path)
	}
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mesh file %s: %w", filepath.Base(path), err)
	}
	return &Handle{Name: filepath.Base(path), solid: solid}, nil
}

// Save writes the handle to a user-chosen permanent path.
func (s *Store) Save(h *Handle, path string) error {
	if h == nil || h.solid == nil {
		return fmt.Errorf("no mesh to save")
	}
	if err := h.solid.WriteFile(path); err != nil {
		return fmt.Errorf("save mesh to %s: %w", path, err)
	}
	return nil
}

func (s *Store) inTempArea(path string) bool {
	rel, err := filepath.Rel(s.tempDir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func toSTL(solid *cad.Solid) *stl.Solid {
	out := &stl.Solid{
		Name:      "automodel",
		IsAscii:   false,
		Triangles: make([]stl.Triangle, 0, len(solid.Triangles)),
	}
	for _, t := range solid.Triangles {
		out.Triangles = append(out.Triangles, stl.Triangle{
			Normal: normal(t),
			Vertices: [3]stl.Vec3{
				vec3(t.V[0]),
				vec3(t.V[1]),
				vec3(t.V[2]),
			},
		})
	}
	return out
}

func vec3(v cad.Vec3) stl.Vec3 {
	return stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func normal(t cad.Triangle) stl.Vec3 {
	ux, uy, uz := t.V[1].X-t.V[0].X, t.V[1].Y-t.V[0].Y, t.V[1].Z-t.V[0].Z
	vx, vy, vz := t.V[2].X-t.V[0].X, t.V[2].Y-t.V[0].Y, t.V[2].Z-t.V[0].Z
	nx, ny, nz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
	l := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return stl.Vec3{}
	}
	return stl.Vec3{float32(nx / l), float32(ny / l), float32(nz / l)}
}
