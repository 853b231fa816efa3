// Package cad is the modeling kernel entry point exposed to generated
// scripts. It deliberately mirrors the small surface the prompt contract
// promises: a Workplane constructor with chainable primitives and a
// Solid() finalization that yields a triangle soup for meshing.
//
// Invalid arguments panic; the script interpreter contains those panics
// and reports them as runtime failures of the generated code.
package cad

import (
	"fmt"
	"math"
)

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

type Vec2 struct {
	X float64
	Y float64
}

type Triangle struct {
	V [3]Vec3
}

// Solid is a finalized model: a triangle soup describing the boundary
// surface, convertible to an STL mesh.
type Solid struct {
	Triangles []Triangle
}

// BoundingBox returns the axis-aligned bounds of the solid.
func (s *Solid) BoundingBox() (min, max Vec3) {
	if len(s.Triangles) == 0 {
		return Vec3{}, Vec3{}
	}
	min = s.Triangles[0].V[0]
	max = min
	for _, t := range s.Triangles {
		for _, v := range t.V {
			min.X = math.Min(min.X, v.X)
			min.Y = math.Min(min.Y, v.Y)
			min.Z = math.Min(min.Z, v.Z)
			max.X = math.Max(max.X, v.X)
			max.Y = math.Max(max.Y, v.Y)
			max.Z = math.Max(max.Z, v.Z)
		}
	}
	return min, max
}

const (
	cylinderSegments = 48
	sphereSlices     = 48
	sphereStacks     = 24
	arcSegments      = 32
)

// Workplane accumulates solid geometry on a named construction plane.
// Primitives are centered on the plane origin; chained primitives are
// combined into one solid.
type Workplane struct {
	plane     string
	triangles []Triangle
}

// NewWorkplane creates a workplane on one of the three principal planes:
// "XY", "XZ" or "YZ". It is bound into generated scripts under the name
// cad.Workplane.
func NewWorkplane(plane string) *Workplane {
	switch plane {
	case "XY", "XZ", "YZ":
	default:
		panic(fmt.Sprintf("cad: unknown workplane %q (want XY, XZ or YZ)", plane))
	}
	return &Workplane{plane: plane}
}

// toWorld maps workplane-local coordinates (u, v in plane, w normal) to
// world coordinates.
func (w *Workplane) toWorld(u, v, n float64) Vec3 {
	switch w.plane {
	case "XZ":
		return Vec3{X: u, Y: n, Z: v}
	case "YZ":
		return Vec3{X: n, Y: u, Z: v}
	default: // XY
		return Vec3{X: u, Y: v, Z: n}
	}
}

func (w *Workplane) addTriangle(a, b, c Vec3) {
	w.triangles = append(w.triangles, Triangle{V: [3]Vec3{a, b, c}})
}

func (w *Workplane) addQuad(a, b, c, d Vec3) {
	w.addTriangle(a, b, c)
	w.addTriangle(a, c, d)
}

// Box adds a rectangular box of the given length, width and height,
// centered on the workplane origin.
func (w *Workplane) Box(length, width, height float64) *Workplane {
	if length <= 0 || width <= 0 || height <= 0 {
		panic("cad: box dimensions must be positive")
	}
	w.addBoxLocal(0, 0, length, width, height)
	return w
}

func (w *Workplane) addBoxLocal(cu, cv, length, width, height float64) {
	hl, hw, hh := length/2, width/2, height/2
	// corners in local coordinates
	p := func(du, dv, dn float64) Vec3 {
		return w.toWorld(cu+du, cv+dv, dn)
	}
	// bottom (n = -hh) and top (n = +hh)
	w.addQuad(p(-hl, -hw, -hh), p(hl, -hw, -hh), p(hl, hw, -hh), p(-hl, hw, -hh))
	w.addQuad(p(-hl, -hw, hh), p(-hl, hw, hh), p(hl, hw, hh), p(hl, -hw, hh))
	// sides
	w.addQuad(p(-hl, -hw, -hh), p(-hl, -hw, hh), p(hl, -hw, hh), p(hl, -hw, -hh))
	w.addQuad(p(hl, -hw, -hh), p(hl, -hw, hh), p(hl, hw, hh), p(hl, hw, -hh))
	w.addQuad(p(hl, hw, -hh), p(hl, hw, hh), p(-hl, hw, hh), p(-hl, hw, -hh))
	w.addQuad(p(-hl, hw, -hh), p(-hl, hw, hh), p(-hl, -hw, hh), p(-hl, -hw, -hh))
}

// Cylinder adds a cylinder of the given height and radius, centered on the
// workplane origin with its axis along the plane normal.
func (w *Workplane) Cylinder(height, radius float64) *Workplane {
	if height <= 0 || radius <= 0 {
		panic("cad: cylinder dimensions must be positive")
	}
	w.addCylinderLocal(0, 0, height, radius)
	return w
}

func (w *Workplane) addCylinderLocal(cu, cv, height, radius float64) {
	hh := height / 2
	for i := 0; i < cylinderSegments; i++ {
		a0 := 2 * math.Pi * float64(i) / cylinderSegments
		a1 := 2 * math.Pi * float64(i+1) / cylinderSegments
		u0, v0 := cu+radius*math.Cos(a0), cv+radius*math.Sin(a0)
		u1, v1 := cu+radius*math.Cos(a1), cv+radius*math.Sin(a1)
		// side
		w.addQuad(
			w.toWorld(u0, v0, -hh),
			w.toWorld(u1, v1, -hh),
			w.toWorld(u1, v1, hh),
			w.toWorld(u0, v0, hh),
		)
		// caps
		w.addTriangle(w.toWorld(cu, cv, -hh), w.toWorld(u1, v1, -hh), w.toWorld(u0, v0, -hh))
		w.addTriangle(w.toWorld(cu, cv, hh), w.toWorld(u0, v0, hh), w.toWorld(u1, v1, hh))
	}
}

// Sphere adds a sphere of the given radius centered on the workplane
// origin.
func (w *Workplane) Sphere(radius float64) *Workplane {
	if radius <= 0 {
		panic("cad: sphere radius must be positive")
	}
	for st := 0; st < sphereStacks; st++ {
		phi0 := math.Pi * float64(st) / sphereStacks
		phi1 := math.Pi * float64(st+1) / sphereStacks
		for sl := 0; sl < sphereSlices; sl++ {
			th0 := 2 * math.Pi * float64(sl) / sphereSlices
			th1 := 2 * math.Pi * float64(sl+1) / sphereSlices
			p := func(phi, th float64) Vec3 {
				return w.toWorld(
					radius*math.Sin(phi)*math.Cos(th),
					radius*math.Sin(phi)*math.Sin(th),
					radius*math.Cos(phi),
				)
			}
			a, b, c, d := p(phi0, th0), p(phi0, th1), p(phi1, th1), p(phi1, th0)
			if st > 0 {
				w.addTriangle(a, b, c)
			}
			if st < sphereStacks-1 {
				w.addTriangle(a, c, d)
			}
		}
	}
	return w
}

// Slot adds a rounded slot: a box of the given length and width whose
// short ends are replaced by half cylinders, extruded to the given depth.
// This is the supported alternative to a slot helper on the sketch API.
func (w *Workplane) Slot(length, width, depth float64) *Workplane {
	if length <= 0 || width <= 0 || depth <= 0 {
		panic("cad: slot dimensions must be positive")
	}
	if length <= width {
		panic("cad: slot length must exceed its width")
	}
	straight := length - width
	w.addBoxLocal(0, 0, straight, width, depth)
	w.addCylinderLocal(-straight/2, 0, depth, width/2)
	w.addCylinderLocal(straight/2, 0, depth, width/2)
	return w
}

// Translate moves all geometry accumulated so far by the given world
// offsets.
func (w *Workplane) Translate(x, y, z float64) *Workplane {
	for i := range w.triangles {
		for j := range w.triangles[i].V {
			w.triangles[i].V[j].X += x
			w.triangles[i].V[j].Y += y
			w.triangles[i].V[j].Z += z
		}
	}
	return w
}

// Add merges the geometry of another workplane into this one.
func (w *Workplane) Add(other *Workplane) *Workplane {
	if other == nil {
		panic("cad: cannot add a nil workplane")
	}
	w.triangles = append(w.triangles, other.triangles...)
	return w
}

// Extrude sweeps the closed profiles of a sketch along the plane normal to
// the given depth and adds the resulting prisms.
func (w *Workplane) Extrude(sk *Sketch, depth float64) *Workplane {
	if sk == nil {
		panic("cad: cannot extrude a nil sketch")
	}
	if depth <= 0 {
		panic("cad: extrude depth must be positive")
	}
	for _, poly := range sk.closedProfiles() {
		if len(poly) < 3 {
			panic("cad: sketch profile needs at least three points")
		}
		hh := depth / 2
		// caps by fan triangulation (profiles are expected convex)
		for i := 1; i < len(poly)-1; i++ {
			w.addTriangle(
				w.toWorld(poly[0].X, poly[0].Y, -hh),
				w.toWorld(poly[i+1].X, poly[i+1].Y, -hh),
				w.toWorld(poly[i].X, poly[i].Y, -hh),
			)
			w.addTriangle(
				w.toWorld(poly[0].X, poly[0].Y, hh),
				w.toWorld(poly[i].X, poly[i].Y, hh),
				w.toWorld(poly[i+1].X, poly[i+1].Y, hh),
			)
		}
		// walls
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			w.addQuad(
				w.toWorld(a.X, a.Y, -hh),
				w.toWorld(b.X, b.Y, -hh),
				w.toWorld(b.X, b.Y, hh),
				w.toWorld(a.X, a.Y, hh),
			)
		}
	}
	return w
}

// Solid finalizes the workplane into a solid. It fails if no geometry has
// been added, which is how an "empty" generated script is detected.
func (w *Workplane) Solid() (*Solid, error) {
	if len(w.triangles) == 0 {
		return nil, fmt.Errorf("workplane has no solid geometry")
	}
	out := make([]Triangle, len(w.triangles))
	copy(out, w.triangles)
	return &Solid{Triangles: out}, nil
}

// Sketch is the 2D profile sub-API. It intentionally has no slot helper;
// slots are built with Workplane.Slot or combined primitives.
type Sketch struct {
	profiles [][]Vec2
}

// NewSketch creates an empty sketch. Bound into scripts as cad.Sketch.
func NewSketch() *Sketch {
	return &Sketch{}
}

// AddRect adds a rectangle centered on the sketch origin.
func (s *Sketch) AddRect(width, height float64) *Sketch {
	if width <= 0 || height <= 0 {
		panic("cad: rect dimensions must be positive")
	}
	hw, hh := width/2, height/2
	s.profiles = append(s.profiles, []Vec2{
		{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh},
	})
	return s
}

// AddCircle adds a circle centered on the sketch origin.
func (s *Sketch) AddCircle(radius float64) *Sketch {
	if radius <= 0 {
		panic("cad: circle radius must be positive")
	}
	poly := make([]Vec2, 0, arcSegments)
	for i := 0; i < arcSegments; i++ {
		a := 2 * math.Pi * float64(i) / arcSegments
		poly = append(poly, Vec2{radius * math.Cos(a), radius * math.Sin(a)})
	}
	s.profiles = append(s.profiles, poly)
	return s
}

// AddPolyline adds a closed profile from a flat list of x,y coordinate
// pairs.
func (s *Sketch) AddPolyline(coords ...float64) *Sketch {
	if len(coords) < 6 || len(coords)%2 != 0 {
		panic("cad: polyline needs at least three x,y pairs")
	}
	poly := make([]Vec2, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		poly = append(poly, Vec2{coords[i], coords[i+1]})
	}
	s.profiles = append(s.profiles, poly)
	return s
}

// AddArc adds a circular arc approximated as a closed pie profile around
// the given center, from the start to the end angle in degrees.
func (s *Sketch) AddArc(cx, cy, radius, startDeg, endDeg float64) *Sketch {
	if radius <= 0 {
		panic("cad: arc radius must be positive")
	}
	start := startDeg * math.Pi / 180
	end := endDeg * math.Pi / 180
	if end <= start {
		panic("cad: arc end angle must exceed its start angle")
	}
	poly := []Vec2{{cx, cy}}
	for i := 0; i <= arcSegments; i++ {
		a := start + (end-start)*float64(i)/arcSegments
		poly = append(poly, Vec2{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
	}
	s.profiles = append(s.profiles, poly)
	return s
}

func (s *Sketch) closedProfiles() [][]Vec2 {
	return s.profiles
}
