package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// RenderMode selects how work units are defined
type RenderMode int

const (
	// Batch renders one fully sampled image column per unit
	Batch RenderMode = iota
	// Progressive renders one whole-image sampling pass per unit
	Progressive
)

func (m RenderMode) String() string {
	if m == Progressive {
		return "progressive"
	}
	return "batch"
}

// DepthOfField configures the thin-lens model. Disabled when Falloff is zero.
type DepthOfField struct {
	Center  float64 // Distance from the image plane to the focus plane
	Falloff float64 // Lens radius
}

// Enabled reports whether primary rays are perturbed
func (d DepthOfField) Enabled() bool {
	return d.Falloff > 0
}

// Options contains the configuration for one render
type Options struct {
	AOSamples    int  // Side of the ambient occlusion sample grid; 0 disables occlusion rays
	Samples      int  // Side of the anti-aliasing sample grid
	MaxDepth     int  // Reflection and transmission recursion cap
	VoxelSteps   int  // Grid resolution per axis, 0 picks one from the primitive count
	Mode         RenderMode
	DOF          DepthOfField
	Shadows      bool
	MaxThreads   int
	Width        int
	Height       int
	Light        *core.Vec3 // nil places the light at the camera
	Filter       FilterKind
	PollInterval time.Duration // How often progress is reported while rendering
	Seed         int64         // Seed of the base generator all worker generators derive from
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		AOSamples:    1,
		Samples:      2,
		MaxDepth:     5,
		VoxelSteps:   0,
		Mode:         Batch,
		Shadows:      true,
		MaxThreads:   runtime.NumCPU(),
		Width:        640,
		Height:       480,
		Filter:       BoxFilterKind,
		PollInterval: time.Second,
		Seed:         42,
	}
}

var (
	errNotPositive = errors.New("must be positive")
	errNegative    = errors.New("must not be negative")
)

// Apply parses the string settings on top of o. Keys are applied in sorted
// order. A value that fails to parse leaves the option unchanged, is logged,
// and is reported in the returned slice as a *core.ConfigError.
func (o *Options) Apply(settings map[string]string, logger core.Logger) []error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := strings.TrimSpace(settings[key])
		err := o.set(key, value)
		if err == nil {
			continue
		}
		cfgErr := &core.ConfigError{Key: key, Value: value, Err: err}
		if logger != nil {
			logger.Printf("Ignoring option: %v", cfgErr)
		}
		errs = append(errs, cfgErr)
	}
	return errs
}

func (o *Options) set(key, value string) error {
	switch key {
	case "ambient-occlusion-samples":
		return setInt(&o.AOSamples, value, 0)
	case "samples":
		return setInt(&o.Samples, value, 1)
	case "max-depth":
		return setInt(&o.MaxDepth, value, 0)
	case "voxel-steps":
		return setInt(&o.VoxelSteps, value, 0)
	case "max-threads":
		return setInt(&o.MaxThreads, value, 1)
	case "progressive":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		o.Mode = Batch
		if b {
			o.Mode = Progressive
		}
	case "shadows":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		o.Shadows = b
	case "size":
		w, h, err := parseSize(value)
		if err != nil {
			return err
		}
		o.Width, o.Height = w, h
	case "dof":
		dof, err := parseDOF(value)
		if err != nil {
			return err
		}
		o.DOF = dof
	case "light":
		v, err := ParseVec3(value)
		if err != nil {
			return err
		}
		o.Light = &v
	case "filter":
		kind, err := ParseFilterKind(value)
		if err != nil {
			return err
		}
		o.Filter = kind
	default:
		return fmt.Errorf("unknown option")
	}
	return nil
}

func setInt(dst *int, value string, min int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < min {
		if min > 0 {
			return errNotPositive
		}
		return errNegative
	}
	*dst = n
	return nil
}

// parseSize parses "WxH"
func parseSize(value string) (int, int, error) {
	parts := strings.Split(strings.ToLower(value), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH")
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if w <= 0 || h <= 0 {
		return 0, 0, errNotPositive
	}
	return w, h, nil
}

// parseDOF parses "center,falloff"; "off" or "0" disables depth of field
func parseDOF(value string) (DepthOfField, error) {
	if value == "off" || value == "0" || value == "" {
		return DepthOfField{}, nil
	}
	floats, err := parseFloats(value, 2)
	if err != nil {
		return DepthOfField{}, err
	}
	if floats[0] <= 0 || floats[1] < 0 {
		return DepthOfField{}, fmt.Errorf("center must be positive and falloff not negative")
	}
	return DepthOfField{Center: floats[0], Falloff: floats[1]}, nil
}

// ParseVec3 parses "x,y,z"
func ParseVec3(value string) (core.Vec3, error) {
	floats, err := parseFloats(value, 3)
	if err != nil {
		return core.Vec3{}, err
	}
	return core.NewVec3(floats[0], floats[1], floats[2]), nil
}

func parseFloats(value string, count int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != count {
		return nil, fmt.Errorf("expected %d comma separated numbers", count)
	}
	out := make([]float64, count)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Units returns the number of work units a render of this size needs
func (o Options) Units(width int) int {
	if o.Mode == Progressive {
		return o.Samples * o.Samples
	}
	return width
}
