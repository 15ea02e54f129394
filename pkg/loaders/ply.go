package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement
}

// PLYElement is one element block declared in the header, in file order
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData holds the geometry read from a PLY file. Polygons are split
// into triangle fans.
type PLYData struct {
	Vertices []core.Vec3
	Faces    []int       // Triangle indices, 3 per triangle
	Colors   []core.Vec3 // Per-vertex colors in [0,1], empty if not present
}

// TriangleCount returns the number of triangles
func (d *PLYData) TriangleCount() int {
	return len(d.Faces) / 3
}

// LoadPLY loads a PLY file
func LoadPLY(filename string) (*PLYData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return data, nil
}

// ReadPLY parses PLY data in any of the three standard encodings
func ReadPLY(r io.Reader) (*PLYData, error) {
	br := bufio.NewReaderSize(r, 1024*1024)
	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var values valueReader
	switch header.Format {
	case "ascii":
		values = newASCIIReader(br)
	case "binary_little_endian":
		values = &binaryReader{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryReader{r: br, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("unsupported PLY format: %q", header.Format)
	}

	data, err := readElements(header, values)
	if err != nil {
		return nil, fmt.Errorf("failed to read PLY data: %w", err)
	}
	return data, nil
}

// parsePLYHeader reads up to and including the end_header line
func parsePLYHeader(r *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	var current *PLYElement

	first := true
	for {
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("header ended before end_header: %w", err)
		}
		line = strings.TrimSpace(line)

		if first {
			if line != "ply" {
				return nil, fmt.Errorf("missing ply magic number")
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid format line: %q", line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]
		case "property":
			if current == nil {
				return nil, fmt.Errorf("property before any element: %q", line)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %w", err)
			}
			current.Props = append(current.Props, prop)
		default:
			return nil, fmt.Errorf("unknown header line: %q", line)
		}
	}

	if header.Format == "" {
		return nil, fmt.Errorf("missing format line")
	}
	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		if typeSize(parts[1]) == 0 || typeSize(parts[2]) == 0 {
			return PLYProperty{}, fmt.Errorf("unsupported list types %s %s", parts[1], parts[2])
		}
		return PLYProperty{IsList: true, ListType: parts[1], DataType: parts[2], Name: parts[3]}, nil
	}

	if typeSize(parts[0]) == 0 {
		return PLYProperty{}, fmt.Errorf("unsupported data type: %s", parts[0])
	}
	return PLYProperty{Type: parts[0], Name: parts[1]}, nil
}

// readElements walks every element in header order, keeping vertices and faces
func readElements(header *PLYHeader, values valueReader) (*PLYData, error) {
	data := &PLYData{}
	vertexCount := -1

	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			if err := readVertices(element, values, data); err != nil {
				return nil, err
			}
			vertexCount = element.Count
		case "face":
			if vertexCount < 0 {
				return nil, fmt.Errorf("face element before vertex element")
			}
			if err := readFaces(element, values, vertexCount, data); err != nil {
				return nil, err
			}
		default:
			if err := skipElement(element, values); err != nil {
				return nil, err
			}
		}
	}

	if vertexCount < 0 {
		return nil, fmt.Errorf("no vertex element")
	}
	return data, nil
}

func readVertices(element PLYElement, values valueReader, data *PLYData) error {
	hasColors := false
	for _, prop := range element.Props {
		switch prop.Name {
		case "red", "green", "blue":
			hasColors = true
		}
	}

	data.Vertices = make([]core.Vec3, 0, element.Count)
	if hasColors {
		data.Colors = make([]core.Vec3, 0, element.Count)
	}

	for i := 0; i < element.Count; i++ {
		var position, color core.Vec3
		for _, prop := range element.Props {
			if prop.IsList {
				if err := skipList(prop, values); err != nil {
					return fmt.Errorf("vertex %d: %w", i, err)
				}
				continue
			}
			v, err := values.Read(prop.Type)
			if err != nil {
				return fmt.Errorf("vertex %d property %s: %w", i, prop.Name, err)
			}
			switch prop.Name {
			case "x":
				position.X = v
			case "y":
				position.Y = v
			case "z":
				position.Z = v
			case "red":
				color.X = colorChannel(v, prop.Type)
			case "green":
				color.Y = colorChannel(v, prop.Type)
			case "blue":
				color.Z = colorChannel(v, prop.Type)
			}
		}
		data.Vertices = append(data.Vertices, position)
		if hasColors {
			data.Colors = append(data.Colors, color)
		}
	}
	return nil
}

// colorChannel normalizes integer channels from 0-255 to [0,1]
func colorChannel(v float64, dataType string) float64 {
	switch dataType {
	case "float", "float32", "double", "float64":
		return v
	}
	return v / 255
}

func readFaces(element PLYElement, values valueReader, vertexCount int, data *PLYData) error {
	data.Faces = make([]int, 0, element.Count*3)
	var polygon []int

	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Props {
			if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
				if err := skipProperty(prop, values); err != nil {
					return fmt.Errorf("face %d property %s: %w", i, prop.Name, err)
				}
				continue
			}

			n, err := values.Read(prop.ListType)
			if err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			polygon = polygon[:0]
			for k := 0; k < int(n); k++ {
				idx, err := values.Read(prop.DataType)
				if err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				if idx < 0 || int(idx) >= vertexCount {
					return fmt.Errorf("face %d: vertex index %v out of range", i, idx)
				}
				polygon = append(polygon, int(idx))
			}

			// Fan triangulation, so a quad (a,b,c,d) becomes (a,b,c) and (a,c,d)
			for k := 1; k+1 < len(polygon); k++ {
				data.Faces = append(data.Faces, polygon[0], polygon[k], polygon[k+1])
			}
		}
	}
	return nil
}

func skipElement(element PLYElement, values valueReader) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Props {
			if err := skipProperty(prop, values); err != nil {
				return fmt.Errorf("%s %d property %s: %w", element.Name, i, prop.Name, err)
			}
		}
	}
	return nil
}

func skipProperty(prop PLYProperty, values valueReader) error {
	if prop.IsList {
		return skipList(prop, values)
	}
	_, err := values.Read(prop.Type)
	return err
}

func skipList(prop PLYProperty, values valueReader) error {
	n, err := values.Read(prop.ListType)
	if err != nil {
		return err
	}
	for k := 0; k < int(n); k++ {
		if _, err := values.Read(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// typeSize returns the size in bytes of a PLY data type, 0 if unknown
func typeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// valueReader returns the next scalar of the given PLY type as a float64
type valueReader interface {
	Read(dataType string) (float64, error)
}

type asciiReader struct {
	scanner *bufio.Scanner
}

func newASCIIReader(r io.Reader) *asciiReader {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return &asciiReader{scanner: scanner}
}

func (a *asciiReader) Read(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	v, err := strconv.ParseFloat(a.scanner.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", dataType, err)
	}
	return v, nil
}

type binaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) Read(dataType string) (float64, error) {
	size := typeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unsupported data type: %s", dataType)
	}
	raw := b.buf[:size]
	if _, err := io.ReadFull(b.r, raw); err != nil {
		return 0, err
	}

	switch dataType {
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(raw))), nil
	case "double", "float64":
		return math.Float64frombits(b.order.Uint64(raw)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(raw))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(raw)), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(raw))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(raw)), nil
	case "char", "int8":
		return float64(int8(raw[0])), nil
	default:
		return float64(raw[0]), nil
	}
}
