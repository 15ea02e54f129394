package geometry

// Material holds the shading coefficients of a class of primitives
type Material struct {
	ID         int
	Name       string
	Ambient    float64
	Diffuse    float64
	Specular   float64
	Reflection float64 // Mirror blend factor in [0,1]
}

var defaultMaterial = &Material{
	ID:       0,
	Name:     "default",
	Ambient:  0.6,
	Diffuse:  0.6,
	Specular: 0.6,
}

// DefaultMaterial returns the shared material used when none is given
func DefaultMaterial() *Material {
	return defaultMaterial
}

// NewMaterial creates a named material
func NewMaterial(id int, name string, ambient, diffuse, specular, reflection float64) *Material {
	return &Material{
		ID:         id,
		Name:       name,
		Ambient:    ambient,
		Diffuse:    diffuse,
		Specular:   specular,
		Reflection: reflection,
	}
}
