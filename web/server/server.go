package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/renderer"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/scene"
)

// Server handles web requests for the renderer
type Server struct {
	port      int
	scenesDir string
}

// NewServer creates a new web server. JSON scenes are listed from scenesDir.
func NewServer(port int, scenesDir string) *Server {
	return &Server{port: port, scenesDir: scenesDir}
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in and file scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// loadScene resolves a scene id. Plain paths are not accepted over HTTP.
func (s *Server) loadScene(id string) (*scene.Scene, error) {
	if _, ok := scene.Builtin(id); !ok && !strings.HasPrefix(id, "file:") {
		return nil, fmt.Errorf("unknown scene: %s", id)
	}
	return scene.Load(id, s.scenesDir)
}

// SceneParams are the query parameters shared by render and inspect requests.
// A zero size keeps the scene's own.
type SceneParams struct {
	Scene  string
	Width  int
	Height int
}

// parseSceneParams parses the scene and image size
func parseSceneParams(values url.Values) (SceneParams, error) {
	p := SceneParams{Scene: values.Get("scene")}
	if p.Scene == "" {
		p.Scene = "default"
	}

	var err error
	if p.Width, err = parseIntParam(values, "width", 0, 16, 2000); err != nil {
		return p, err
	}
	if p.Height, err = parseIntParam(values, "height", 0, 16, 2000); err != nil {
		return p, err
	}
	return p, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, &core.ConfigError{Key: key, Value: value, Err: err}
		}
		if parsed < min || parsed > max {
			return 0, &core.ConfigError{Key: key, Value: value, Err: fmt.Errorf("must be between %d and %d", min, max)}
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// size returns the requested image size, filling unset sides from opts
func (p SceneParams) size(opts renderer.Options) (int, int) {
	width, height := opts.Width, opts.Height
	if p.Width > 0 {
		width = p.Width
	}
	if p.Height > 0 {
		height = p.Height
	}
	return width, height
}

// newOrchestrator loads the scene and prepares it with the scene's settings
// applied over the defaults, then the request overrides
func (s *Server) newOrchestrator(p SceneParams, overrides map[string]string, logger core.Logger) (*renderer.Orchestrator, error) {
	sc, err := s.loadScene(p.Scene)
	if err != nil {
		return nil, err
	}

	opts := renderer.DefaultOptions()
	opts.Apply(sc.Settings, logger)
	if errs := opts.Apply(overrides, nil); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	opts.Width, opts.Height = p.size(opts)

	return renderer.NewOrchestrator(sc, opts, logger)
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, &core.ConfigError{Key: key, Value: value, Err: err}
		}
		if math.IsNaN(parsed) || parsed < min || parsed > max {
			return 0, &core.ConfigError{Key: key, Value: value, Err: fmt.Errorf("must be between %g and %g", min, max)}
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatListParam checks that a parameter holds count comma separated
// numbers, each between min and max
func parseFloatListParam(values url.Values, key string, count int, min, max float64) error {
	value := values.Get(key)
	parts := strings.Split(value, ",")
	if len(parts) != count {
		return &core.ConfigError{Key: key, Value: value, Err: fmt.Errorf("expected %d comma separated numbers", count)}
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return &core.ConfigError{Key: key, Value: value, Err: fmt.Errorf("empty number")}
		}
		if _, err := parseFloatParam(url.Values{key: {part}}, key, 0, min, max); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
