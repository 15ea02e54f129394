package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	GeometryType string                 `json:"geometryType"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	Properties   map[string]interface{} `json:"properties"`
}

func vec3Array(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// extractMaterialInfo reports the shading coefficients and color of a
// surface. Surfaces without a material shade with the default one.
func extractMaterialInfo(sf *geometry.Surface) map[string]interface{} {
	m := sf.Material
	if m == nil {
		m = geometry.DefaultMaterial()
	}
	return map[string]interface{}{
		"name":       m.Name,
		"ambient":    m.Ambient,
		"diffuse":    m.Diffuse,
		"specular":   m.Specular,
		"reflection": m.Reflection,
		"alpha":      sf.Alpha,
		"color": fmt.Sprintf("#%02x%02x%02x",
			int(sf.Color.X*255), int(sf.Color.Y*255), int(sf.Color.Z*255)),
	}
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(p geometry.Primitive) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := p.(type) {
	case *geometry.Sphere:
		properties["center"] = vec3Array(geom.Position)
		properties["radius"] = geom.Radius
		return "sphere", properties

	case *geometry.Box:
		properties["base"] = vec3Array(geom.Base)
		properties["edges"] = [3][3]float64{
			vec3Array(geom.Edges[0]), vec3Array(geom.Edges[1]), vec3Array(geom.Edges[2]),
		}
		properties["orthogonal"] = geom.Orthogonal()
		return "box", properties

	case *geometry.Triangle:
		properties["vertices"] = [3][3]float64{vec3Array(geom.V0), vec3Array(geom.V1), vec3Array(geom.V2)}
		properties["cullBackFace"] = geom.CullBackFace
		return "triangle", properties

	default:
		return "unknown", properties
	}
}

// handleInspect casts the ray through a pixel center and describes the
// nearest primitive it hits
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	params, err := parseSceneParams(values)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
		return
	}

	pixelX, err := strconv.Atoi(values.Get("x"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
		return
	}
	pixelY, err := strconv.Atoi(values.Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
		return
	}

	orchestrator, err := s.newOrchestrator(params, nil, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	opts := orchestrator.Options()
	if pixelX < 0 || pixelX >= opts.Width || pixelY < 0 || pixelY >= opts.Height {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
		return
	}

	// Image rows run top down, v runs bottom up
	u := (float64(pixelX) + 0.5) / float64(opts.Width)
	v := 1 - (float64(pixelY)+0.5)/float64(opts.Height)

	hit, primitive, ok := orchestrator.Inspect(u, v)
	if !ok {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false})
		return
	}

	geometryType, geometryProps := extractGeometryInfo(primitive)
	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:          true,
		GeometryType: geometryType,
		Point:        vec3Array(hit.Point),
		Normal:       vec3Array(hit.Normal),
		Distance:     hit.T,
		Properties: map[string]interface{}{
			"material": extractMaterialInfo(primitive.Surface()),
			"geometry": geometryProps,
		},
	})
}
