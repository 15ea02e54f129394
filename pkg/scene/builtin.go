package scene

import (
	"math"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
)

// builtinScene pairs catalog metadata with the function building the scene
type builtinScene struct {
	info  SceneInfo
	build func() *Scene
}

var builtinScenes = []builtinScene{
	{
		info: SceneInfo{
			ID:          "default",
			Name:        "Default Scene",
			Description: "Spheres and boxes on a floor, with a mirror and a glass sphere",
		},
		build: NewDefaultScene,
	},
	{
		info: SceneInfo{
			ID:          "boxes",
			Name:        "Box Grid",
			Description: "Grid of rainbow-colored boxes, some rotated and sheared",
		},
		build: NewBoxGridScene,
	},
	{
		info: SceneInfo{
			ID:          "mesh",
			Name:        "Height Field Mesh",
			Description: "Rippled grid mesh with a reflective sphere",
		},
		build: NewMeshScene,
	},
	{
		info: SceneInfo{
			ID:          "spheres",
			Name:        "Sphere Grid",
			Description: "20x20 grid of spheres colored across OKLCH hue and chroma",
		},
		build: NewSphereGridScene,
	},
}

// Builtin returns a freshly built scene by id
func Builtin(id string) (*Scene, bool) {
	for _, b := range builtinScenes {
		if b.info.ID == id {
			return b.build(), true
		}
	}
	return nil, false
}

// oklchToRGB converts OKLCH color values to RGB
// L: lightness (0-1), C: chroma (0-0.4+), H: hue (0-360 degrees)
func oklchToRGB(l, c, h float64) core.Vec3 {
	hRad := h * math.Pi / 180.0

	// OKLCH to OKLAB
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	// OKLAB to LMS, then cube
	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b
	l_ = l_ * l_ * l_
	m_ = m_ * m_ * m_
	s_ = s_ * s_ * s_

	// LMS to linear RGB
	r := +4.0767416621*l_ - 3.3077115913*m_ + 0.2309699292*s_
	g := -1.2684380046*l_ + 2.6097574011*m_ - 0.3413193965*s_
	blue := -0.0041960863*l_ - 0.7034186147*m_ + 1.7076147010*s_

	return core.NewVec3(r, g, blue).Clamp(0, 1)
}

var (
	matteMaterial  = geometry.NewMaterial(1, "matte", 0.3, 0.8, 0.1, 0)
	glossyMaterial = geometry.NewMaterial(2, "glossy", 0.2, 0.7, 0.8, 0)
	mirrorMaterial = geometry.NewMaterial(3, "mirror", 0.1, 0.3, 0.9, 0.7)
)

func surface(color core.Vec3, m *geometry.Material) geometry.Surface {
	return geometry.Surface{Color: color, Alpha: 1, Material: m}
}

// addFloor adds a thin slab with its top face at y = 0
func addFloor(s *Scene, halfSize float64, color core.Vec3) {
	s.Add(geometry.NewAxisAlignedBox(
		core.NewVec3(-halfSize, -0.2, -halfSize),
		core.NewVec3(halfSize, 0, halfSize),
		surface(color, matteMaterial),
	))
}

// rotatedBox builds a box of the given size resting on the floor, turned by angle radians about y
func rotatedBox(center, size core.Vec3, angle float64, sf geometry.Surface) *geometry.Box {
	cos, sin := math.Cos(angle), math.Sin(angle)
	e1 := core.NewVec3(cos, 0, -sin).Multiply(size.X)
	e2 := core.NewVec3(0, size.Y, 0)
	e3 := core.NewVec3(sin, 0, cos).Multiply(size.Z)
	base := center.Subtract(e1.Multiply(0.5)).Subtract(e3.Multiply(0.5))
	return geometry.NewBox(base, e1, e2, e3, sf)
}

// NewDefaultScene creates a small scene using every primitive kind and material feature
func NewDefaultScene() *Scene {
	s := New("default")
	s.LookAt(core.NewVec3(0, 3, 9), core.NewVec3(0, 0.8, 0), core.NewVec3(0, 1, 0))
	s.Perspective(40, 4.0/3.0, 0.1, 100)
	s.Background = core.NewVec3(0.55, 0.7, 0.9)
	s.Settings["size"] = "640x480"
	s.Settings["light"] = "6,10,8"

	addFloor(s, 8, core.NewVec3(0.8, 0.8, 0.8))

	s.Add(geometry.NewSphere(core.NewVec3(-1.8, 1, 0), 1, surface(core.NewVec3(0.8, 0.3, 0.3), glossyMaterial)))
	s.Add(geometry.NewSphere(core.NewVec3(0.4, 0.8, -1.2), 0.8, surface(core.NewVec3(0.9, 0.9, 0.9), mirrorMaterial)))
	s.Add(geometry.NewSphere(core.NewVec3(1.2, 0.5, 1.4), 0.5, geometry.Surface{
		Color:    core.NewVec3(0.6, 0.8, 1.0),
		Alpha:    0.4,
		Material: glossyMaterial,
	}))

	s.Add(rotatedBox(core.NewVec3(2.6, 0, -0.3), core.NewVec3(1, 1.6, 1), math.Pi/6,
		surface(core.NewVec3(0.3, 0.6, 0.3), matteMaterial)))

	// A sheared box exercises the triangle path of the box intersection
	s.Add(geometry.NewBox(core.NewVec3(-3.8, 0, 1.2),
		core.NewVec3(1, 0, 0), core.NewVec3(0.4, 1.2, 0), core.NewVec3(0, 0, 0.8),
		surface(core.NewVec3(0.9, 0.7, 0.2), matteMaterial)))

	s.Add(geometry.NewTriangle(
		core.NewVec3(-1, 0.01, 2.2), core.NewVec3(0, 0.01, 3.2), core.NewVec3(-0.2, 1.2, 2.4),
		surface(core.NewVec3(0.4, 0.3, 0.9), matteMaterial)))

	return s
}

// NewBoxGridScene creates a 10x10 grid of boxes of varying height
func NewBoxGridScene() *Scene {
	s := New("boxes")
	s.LookAt(core.NewVec3(4.5, 9, 18), core.NewVec3(4.5, 0.5, 4.5), core.NewVec3(0, 1, 0))
	s.Perspective(40, 16.0/9.0, 0.1, 200)
	s.Background = core.NewVec3(0.5, 0.7, 1.0)
	s.Settings["size"] = "800x450"
	s.Settings["light"] = "20,25,20"

	floor := geometry.NewAxisAlignedBox(core.NewVec3(-2, -0.2, -2), core.NewVec3(11, 0, 11),
		surface(core.NewVec3(0.5, 0.5, 0.5), matteMaterial))
	s.Add(floor)

	const gridSize = 10
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			hue := float64(i) / float64(gridSize-1) * 360
			chroma := 0.05 + float64(j)/float64(gridSize-1)*0.2
			color := oklchToRGB(0.65, chroma, hue)

			height := 0.4 + 0.6*(1+math.Sin(float64(i)*0.7+float64(j)*0.4))
			center := core.NewVec3(float64(i), 0, float64(j))
			size := core.NewVec3(0.6, height, 0.6)

			switch (i + j) % 3 {
			case 0:
				half := size.Multiply(0.5)
				s.Add(geometry.NewAxisAlignedBox(
					core.NewVec3(center.X-half.X, 0, center.Z-half.Z),
					core.NewVec3(center.X+half.X, height, center.Z+half.Z),
					surface(color, glossyMaterial)))
			case 1:
				s.Add(rotatedBox(center, size, float64(i*j)*0.2, surface(color, matteMaterial)))
			default:
				base := core.NewVec3(center.X-0.3, 0, center.Z-0.3)
				s.Add(geometry.NewBox(base,
					core.NewVec3(0.6, 0, 0), core.NewVec3(0.2, height, 0.1), core.NewVec3(0, 0, 0.6),
					surface(color, matteMaterial)))
			}
		}
	}
	return s
}

// NewMeshScene creates a rippled height field as a single grid mesh
func NewMeshScene() *Scene {
	s := New("mesh")
	s.LookAt(core.NewVec3(0, 5, 9), core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0))
	s.Perspective(45, 16.0/9.0, 0.1, 100)
	s.Background = core.NewVec3(0.5, 0.7, 1.0)
	s.Settings["size"] = "640x360"
	s.Settings["light"] = "-4,8,6"

	const rows, cols = 60, 60
	const extent = 10.0
	vertices := make([]core.Vec3, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := (float64(c)/(cols-1) - 0.5) * extent
			z := (float64(r)/(rows-1) - 0.5) * extent
			d := math.Hypot(x, z)
			y := 0.35 * math.Cos(d*2) * math.Exp(-d*0.25)
			vertices = append(vertices, core.NewVec3(x, y, z))
		}
	}

	mesh, err := geometry.NewGridMesh(vertices, rows, cols, surface(core.NewVec3(0.3, 0.55, 0.8), glossyMaterial))
	if err != nil {
		panic(err) // The vertex count matches rows*cols by construction
	}
	s.Add(mesh)
	s.Add(geometry.NewSphere(core.NewVec3(0, 1.4, 0), 0.9, surface(core.NewVec3(0.95, 0.95, 0.95), mirrorMaterial)))
	return s
}

// NewSphereGridScene creates a 20x20 grid of spheres on a floor
func NewSphereGridScene() *Scene {
	s := New("spheres")
	s.LookAt(core.NewVec3(4.5, 6, 18), core.NewVec3(4.5, 0.8, 4.5), core.NewVec3(0, 1, 0))
	s.Perspective(40, 16.0/9.0, 0.1, 200)
	s.Background = core.NewVec3(0.5, 0.7, 1.0)
	s.Settings["size"] = "800x450"
	s.Settings["light"] = "20,25,20"

	floor := geometry.NewAxisAlignedBox(core.NewVec3(-2, -0.2, -2), core.NewVec3(11, 0, 11),
		surface(core.NewVec3(0.5, 0.5, 0.5), matteMaterial))
	s.Add(floor)

	const gridSize = 20
	const targetArea = 9.0
	spacing := targetArea / float64(gridSize-1)
	radius := math.Max(0.02, math.Min(0.35, spacing*0.35))

	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			x := float64(i)*spacing - targetArea/2 + 4.5
			z := float64(j)*spacing - targetArea/2 + 4.5

			// Hue varies across x, chroma across z
			hue := float64(i) / float64(gridSize-1) * 360
			chroma := 0.05 + float64(j)/float64(gridSize-1)*0.2
			m := glossyMaterial
			if (i+j)%5 == 0 {
				m = mirrorMaterial
			}
			s.Add(geometry.NewSphere(core.NewVec3(x, radius, z), radius, surface(oklchToRGB(0.65, chroma, hue), m)))
		}
	}
	return s
}
