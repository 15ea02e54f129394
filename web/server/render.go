package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"net/url"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/renderer"
)

// intOption bounds a numeric render option a request may override
type intOption struct {
	key      string
	min, max int
}

// intOptions lists the numeric overrides. Threads stop at the host's CPU
// count, or 4 on smaller hosts.
func intOptions() []intOption {
	return []intOption{
		{"samples", 1, 64},
		{"ambient-occlusion-samples", 0, 16},
		{"max-depth", 0, 32},
		{"voxel-steps", 0, 512},
		{"max-threads", 1, max(4, runtime.NumCPU())},
	}
}

// flagOptions are checked by renderer.Options.Apply
var flagOptions = []string{"progressive", "shadows", "filter"}

// maxCoordinate bounds light positions and depth of field distances
const maxCoordinate = 1e6

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "preview", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// RenderRequest contains the parsed parameters of a render
type RenderRequest struct {
	SceneParams
	Options      map[string]string
	PreviewWidth int
}

// PreviewUpdate is sent whenever the renderer reports progress
type PreviewUpdate struct {
	RenderID  string  `json:"renderId"`
	Progress  float64 `json:"progress"`
	ImageData string  `json:"imageData"` // Base64 encoded PNG, downscaled to PreviewWidth
}

// RenderComplete carries the final image and its statistics
type RenderComplete struct {
	RenderID      string `json:"renderId"`
	ImageData     string `json:"imageData"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Mode          string `json:"mode"`
	Cancelled     bool   `json:"cancelled"`
	ElapsedMs     int64  `json:"elapsedMs"`
	Rays          int64  `json:"rays"`
	Units         int    `json:"units"`
	UnitsRendered int    `json:"unitsRendered"`
	Primitives    int    `json:"primitives"`
	Excluded      int    `json:"excluded"`
	Workers       int    `json:"workers"`
}

// handleRender renders a scene and streams previews, console output and the
// final image via SSE. Closing the connection cancels the render.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)

	ctx := r.Context()

	// Single writer goroutine, joined before the handler returns
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(w, ctx, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	req, err := parseRenderRequest(r.URL.Query())
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	renderID := uuid.NewString()
	consoleChan := make(chan ConsoleMessage, 50)
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()
	logger := NewWebLogger(renderID, consoleChan)

	img, stats, err := s.render(ctx, req, renderID, logger, sseEventChan)

	// Nothing logs past this point
	close(consoleChan)
	<-consoleDone

	if err != nil {
		s.handleError(ctx, sseEventChan, err.Error())
		return
	}

	imageData, err := imageToBase64PNG(img)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Encoding image failed: %v", err))
		return
	}

	s.sendEvent(ctx, sseEventChan, "complete", RenderComplete{
		RenderID:      renderID,
		ImageData:     imageData,
		Width:         stats.Width,
		Height:        stats.Height,
		Mode:          stats.Mode.String(),
		Cancelled:     stats.Cancelled,
		ElapsedMs:     stats.Duration.Milliseconds(),
		Rays:          stats.Rays,
		Units:         stats.Units,
		UnitsRendered: stats.UnitsRendered,
		Primitives:    stats.Primitives,
		Excluded:      stats.Excluded,
		Workers:       stats.Workers,
	})
}

// render prepares the scene and runs the orchestrator, streaming previews
func (s *Server) render(ctx context.Context, req *RenderRequest, renderID string,
	logger core.Logger, sseEventChan chan<- SSEEvent) (*image.RGBA, renderer.RenderStats, error) {

	orchestrator, err := s.newOrchestrator(req.SceneParams, req.Options, logger)
	if err != nil {
		return nil, renderer.RenderStats{}, fmt.Errorf("Preparing scene failed: %v", err)
	}

	orchestrator.Preview = func(img *image.RGBA, progress float64) {
		imageData, err := imageToBase64PNG(scaleToWidth(img, req.PreviewWidth))
		if err != nil {
			log.Printf("Error encoding preview: %v", err)
			return
		}
		s.sendEvent(ctx, sseEventChan, "preview", PreviewUpdate{
			RenderID:  renderID,
			Progress:  progress,
			ImageData: imageData,
		})
	}

	opts := orchestrator.Options()
	logger.Printf("Rendering %q at %dx%d (%s, %d samples)", req.Scene, opts.Width, opts.Height, opts.Mode, opts.Samples)

	img, stats, err := orchestrator.CalculateImage(ctx, opts.Width, opts.Height)
	if err != nil {
		return nil, stats, fmt.Errorf("Rendering failed: %v", err)
	}
	return img, stats, nil
}

// parseRenderRequest parses request parameters. Numeric options are range
// checked here; the rest are left to renderer.Options.Apply.
func parseRenderRequest(values url.Values) (*RenderRequest, error) {
	params, err := parseSceneParams(values)
	if err != nil {
		return nil, err
	}

	req := &RenderRequest{SceneParams: params, Options: make(map[string]string)}
	if req.PreviewWidth, err = parseIntParam(values, "previewWidth", 200, 16, 2000); err != nil {
		return nil, err
	}

	for _, opt := range intOptions() {
		if values.Get(opt.key) == "" {
			continue
		}
		n, err := parseIntParam(values, opt.key, 0, opt.min, opt.max)
		if err != nil {
			return nil, err
		}
		req.Options[opt.key] = strconv.Itoa(n)
	}

	if dof := values.Get("dof"); dof != "" {
		if dof != "off" && dof != "0" {
			if err := parseFloatListParam(values, "dof", 2, 0, maxCoordinate); err != nil {
				return nil, err
			}
		}
		req.Options["dof"] = dof
	}
	if values.Get("light") != "" {
		if err := parseFloatListParam(values, "light", 3, -maxCoordinate, maxCoordinate); err != nil {
			return nil, err
		}
		req.Options["light"] = values.Get("light")
	}

	for _, key := range flagOptions {
		if values.Has(key) {
			req.Options[key] = values.Get(key)
		}
	}
	return req, nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents writes all SSE events in a single goroutine until the
// channel is closed. Events arriving after a disconnect are drained.
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan <-chan SSEEvent) {
	connected := true
	for event := range sseEventChan {
		if !connected || ctx.Err() != nil {
			connected = false
			continue
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
			// Client disconnected during write
			connected = false
			continue
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// streamConsoleMessages forwards console messages until consoleChan is closed
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, sseEventChan chan<- SSEEvent) {
	for consoleMsg := range consoleChan {
		data, err := json.Marshal(consoleMsg)
		if err != nil {
			log.Printf("Error marshaling console message: %v", err)
			continue
		}

		select {
		case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
		case <-ctx.Done():
		}
	}
}

// sendEvent marshals v and queues it for the writer
func (s *Server) sendEvent(ctx context.Context, sseEventChan chan<- SSEEvent, eventType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}

	select {
	case sseEventChan <- SSEEvent{Type: eventType, Data: string(data)}:
	case <-ctx.Done():
	}
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, sseEventChan chan<- SSEEvent, message string) {
	select {
	case sseEventChan <- SSEEvent{Type: "error", Data: message}:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}

// scaleToWidth downscales img to width pixels, keeping its aspect ratio.
// Images already narrow enough are returned as is.
func scaleToWidth(img *image.RGBA, width int) image.Image {
	bounds := img.Bounds()
	if width <= 0 || bounds.Dx() <= width {
		return img
	}

	height := max(1, bounds.Dy()*width/bounds.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
