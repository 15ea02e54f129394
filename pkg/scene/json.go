package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/loaders"
)

// Vec3Cfg is a point, direction or color written as [x, y, z]
type Vec3Cfg [3]float64

func (v Vec3Cfg) Vec3() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

type CameraCfg struct {
	Eye    Vec3Cfg  `json:"eye"`
	Center Vec3Cfg  `json:"center"`
	Up     *Vec3Cfg `json:"up,omitempty"` // defaults to +y
	Fov    float64  `json:"fov,omitempty"`
	Aspect float64  `json:"aspect,omitempty"`
	Near   float64  `json:"near,omitempty"`
	Far    float64  `json:"far,omitempty"`
	// When set the projection is orthographic and Fov is ignored
	Ortho *OrthoCfg `json:"ortho,omitempty"`
}

type OrthoCfg struct {
	HalfWidth  float64 `json:"halfWidth"`
	HalfHeight float64 `json:"halfHeight"`
}

type MaterialCfg struct {
	Ambient    float64 `json:"ambient"`
	Diffuse    float64 `json:"diffuse"`
	Specular   float64 `json:"specular"`
	Reflection float64 `json:"reflection,omitempty"`
}

// PrimitiveCfg describes one primitive. Type selects which fields apply:
//
//	box:      base + edges, or min + max
//	sphere:   center + radius
//	triangle: vertices (3)
//	mesh:     vertices + faces, or ply (relative to the scene file)
//	grid:     vertices + rows + cols
type PrimitiveCfg struct {
	Type     string    `json:"type"`
	Color    *Vec3Cfg  `json:"color,omitempty"` // defaults to white
	Alpha    *float64  `json:"alpha,omitempty"` // defaults to opaque
	Material string    `json:"material,omitempty"`
	Base     *Vec3Cfg  `json:"base,omitempty"`
	Edges    []Vec3Cfg `json:"edges,omitempty"`
	Min      *Vec3Cfg  `json:"min,omitempty"`
	Max      *Vec3Cfg  `json:"max,omitempty"`
	Center   *Vec3Cfg  `json:"center,omitempty"`
	Radius   float64   `json:"radius,omitempty"`
	Vertices []Vec3Cfg `json:"vertices,omitempty"`
	Faces    [][]int   `json:"faces,omitempty"`
	PLY      string    `json:"ply,omitempty"`
	Rows     int       `json:"rows,omitempty"`
	Cols     int       `json:"cols,omitempty"`
	Cull     bool      `json:"cullBackFaces,omitempty"`
}

// Config is the on-disk JSON scene format
type Config struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Group       string                 `json:"group,omitempty"`
	Background  Vec3Cfg                `json:"background"`
	Camera      CameraCfg              `json:"camera"`
	Materials   map[string]MaterialCfg `json:"materials,omitempty"`
	Settings    map[string]any         `json:"settings,omitempty"` // Values are stringified for Options.Apply
	Primitives  []PrimitiveCfg         `json:"primitives"`
}

// LoadFile reads a JSON scene. Relative PLY paths resolve against the file's directory.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	s, err := cfg.Build(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Build validates the configuration and constructs the scene. Degenerate
// geometry is left in; the renderer excludes it when preparing.
func (c Config) Build(dir string) (*Scene, error) {
	s := New(c.Name)
	s.Background = c.Background.Vec3()
	for k, v := range c.Settings {
		s.Settings[k] = settingString(k, v)
	}

	if err := c.Camera.apply(s); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(c.Materials))
	for name := range c.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	materials := make(map[string]*geometry.Material, len(names))
	for i, name := range names {
		m := c.Materials[name]
		materials[name] = geometry.NewMaterial(i+1, name, m.Ambient, m.Diffuse, m.Specular, m.Reflection)
	}

	for i, pc := range c.Primitives {
		p, err := pc.Build(dir, materials)
		if err != nil {
			return nil, fmt.Errorf("primitive %d (%s): %w", i, pc.Type, err)
		}
		s.Add(p)
	}
	return s, nil
}

func (c CameraCfg) apply(s *Scene) error {
	up := Vec3Cfg{0, 1, 0}
	if c.Up != nil {
		up = *c.Up
	}
	if c.Eye == c.Center {
		return fmt.Errorf("camera eye and center coincide")
	}
	s.LookAt(c.Eye.Vec3(), c.Center.Vec3(), up.Vec3())

	near, far := c.Near, c.Far
	if near <= 0 {
		near = 0.1
	}
	if far <= near {
		far = near * 10000
	}

	if c.Ortho != nil {
		if c.Ortho.HalfWidth <= 0 || c.Ortho.HalfHeight <= 0 {
			return fmt.Errorf("orthographic extents must be positive")
		}
		s.Orthographic(c.Ortho.HalfWidth, c.Ortho.HalfHeight, near, far)
		return nil
	}

	fov, aspect := c.Fov, c.Aspect
	if fov <= 0 {
		fov = 45
	}
	if fov >= 180 {
		return fmt.Errorf("field of view must be below 180 degrees, got %v", fov)
	}
	if aspect <= 0 {
		aspect = 4.0 / 3.0
	}
	s.Perspective(fov, aspect, near, far)
	return nil
}

// Build constructs the runtime primitive
func (pc PrimitiveCfg) Build(dir string, materials map[string]*geometry.Material) (geometry.Primitive, error) {
	sf, err := pc.surface(materials)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(pc.Type) {
	case "box":
		switch {
		case pc.Base != nil && len(pc.Edges) == 3:
			return geometry.NewBox(pc.Base.Vec3(), pc.Edges[0].Vec3(), pc.Edges[1].Vec3(), pc.Edges[2].Vec3(), sf), nil
		case pc.Min != nil && pc.Max != nil:
			return geometry.NewAxisAlignedBox(pc.Min.Vec3(), pc.Max.Vec3(), sf), nil
		}
		return nil, fmt.Errorf("box needs base and 3 edges, or min and max")

	case "sphere":
		if pc.Center == nil {
			return nil, fmt.Errorf("sphere needs a center")
		}
		return geometry.NewSphere(pc.Center.Vec3(), pc.Radius, sf), nil

	case "triangle":
		if len(pc.Vertices) != 3 {
			return nil, fmt.Errorf("triangle needs 3 vertices, got %d", len(pc.Vertices))
		}
		t := geometry.NewTriangle(pc.Vertices[0].Vec3(), pc.Vertices[1].Vec3(), pc.Vertices[2].Vec3(), sf)
		t.CullBackFace = pc.Cull
		return t, nil

	case "mesh":
		mesh, err := pc.mesh(dir, sf)
		if err != nil {
			return nil, err
		}
		mesh.SetCullBackFace(pc.Cull)
		return mesh, nil

	case "grid":
		mesh, err := geometry.NewGridMesh(vec3s(pc.Vertices), pc.Rows, pc.Cols, sf)
		if err != nil {
			return nil, err
		}
		mesh.SetCullBackFace(pc.Cull)
		return mesh, nil
	}
	return nil, fmt.Errorf("unknown primitive type %q", pc.Type)
}

func (pc PrimitiveCfg) mesh(dir string, sf geometry.Surface) (*geometry.Mesh, error) {
	if pc.PLY == "" {
		faces := make([]int, 0, len(pc.Faces)*3)
		for i, f := range pc.Faces {
			if len(f) < 3 {
				return nil, fmt.Errorf("face %d has %d vertices", i, len(f))
			}
			for k := 1; k+1 < len(f); k++ {
				faces = append(faces, f[0], f[k], f[k+1])
			}
		}
		return geometry.NewMesh(vec3s(pc.Vertices), faces, sf)
	}

	path := pc.PLY
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	data, err := loaders.LoadPLY(path)
	if err != nil {
		return nil, err
	}
	return geometry.NewMesh(data.Vertices, data.Faces, sf)
}

func (pc PrimitiveCfg) surface(materials map[string]*geometry.Material) (geometry.Surface, error) {
	sf := geometry.NewSurface(core.NewVec3(1, 1, 1))
	if pc.Color != nil {
		sf.Color = pc.Color.Vec3()
	}
	if pc.Alpha != nil {
		if *pc.Alpha < 0 || *pc.Alpha > 1 {
			return sf, fmt.Errorf("alpha %v outside [0,1]", *pc.Alpha)
		}
		sf.Alpha = *pc.Alpha
	}
	if pc.Material != "" {
		m, ok := materials[pc.Material]
		if !ok {
			return sf, fmt.Errorf("unknown material %q", pc.Material)
		}
		sf.Material = m
	}
	return sf, nil
}

func vec3s(in []Vec3Cfg) []core.Vec3 {
	out := make([]core.Vec3, len(in))
	for i, v := range in {
		out[i] = v.Vec3()
	}
	return out
}

// settingString renders a JSON setting value in the form Options.Apply
// parses. Arrays such as "light": [1, 2, 3] become comma separated, and
// "size": [640, 480] becomes 640x480.
func settingString(key string, v any) string {
	list, ok := v.([]any)
	if !ok {
		return fmt.Sprint(v)
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = fmt.Sprint(item)
	}
	sep := ","
	if key == "size" {
		sep = "x"
	}
	return strings.Join(parts, sep)
}
