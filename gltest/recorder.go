// Package gltest provides an in-memory gl.Context that records every call,
// for tests that need to inspect what would have been sent to the GPU.
package gltest

import (
	"fmt"
	"sync"

	"github.com/esimov/facecam-gl/gl"
)

// Call is a single recorded Context method invocation.
type Call struct {
	Name string
	Args []any
}

// Draw captures the state observed by one DrawArrays call.
type Draw struct {
	Mode       gl.Enum
	First      int
	Count      int
	Program    gl.Program
	Resolution [2]float32
	Viewport   [4]int
	// Attribs maps attribute names to the buffer data bound to them.
	Attribs map[string][]float32
}

// Recorder implements gl.Context in memory. Failures can be injected through
// the exported Fail* fields before the recorder is used.
type Recorder struct {
	mu sync.Mutex

	Width, Height int

	FailVertex   bool
	FailFragment bool
	FailLink     bool
	// MissingAttribs names attributes the linked program does not expose;
	// GetAttribLocation reports -1 for them.
	MissingAttribs map[string]bool

	Calls []Call
	Draws []Draw

	nextID   int
	shaders  map[int]gl.Enum
	deleted  map[int]bool
	programs map[int][]int
	attribs  map[int]string
	uniforms map[string][2]float32
	buffers  map[int][]float32
	pointers map[int]int
	textures map[int][]byte

	boundBuffer  int
	boundTexture int
	program      int
	viewport     [4]int
}

// NewRecorder returns a recorder for a canvas of the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		Width:    width,
		Height:   height,
		shaders:  make(map[int]gl.Enum),
		deleted:  make(map[int]bool),
		programs: make(map[int][]int),
		attribs:  make(map[int]string),
		uniforms: make(map[string][2]float32),
		buffers:  make(map[int][]float32),
		pointers: make(map[int]int),
		textures: make(map[int][]byte),
	}
}

func (r *Recorder) record(name string, args ...any) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) id() int {
	r.nextID++
	return r.nextID
}

func idOf(ref any) int {
	if id, ok := ref.(int); ok {
		return id
	}
	return 0
}

// Count returns how many times the named method was called.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for _, c := range r.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Deleted reports whether the object behind the handle reference was deleted.
func (r *Recorder) Deleted(ref any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted[idOf(ref)]
}

// Texture returns the pixels last uploaded to the texture.
func (r *Recorder) Texture(t gl.Texture) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textures[idOf(t.Ref)]
}

func (r *Recorder) CreateShader(typ gl.Enum) gl.Shader {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.id()
	r.shaders[id] = typ
	r.record("CreateShader", typ)
	return gl.Shader{Ref: id}
}

func (r *Recorder) ShaderSource(s gl.Shader, src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ShaderSource", idOf(s.Ref), src)
}

func (r *Recorder) CompileShader(s gl.Shader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("CompileShader", idOf(s.Ref))
}

func (r *Recorder) compiles(s gl.Shader) bool {
	switch r.shaders[idOf(s.Ref)] {
	case gl.VERTEX_SHADER:
		return !r.FailVertex
	case gl.FRAGMENT_SHADER:
		return !r.FailFragment
	}
	return false
}

func (r *Recorder) GetShaderCompileStatus(s gl.Shader) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetShaderCompileStatus", idOf(s.Ref))
	return r.compiles(s)
}

func (r *Recorder) GetShaderInfoLog(s gl.Shader) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetShaderInfoLog", idOf(s.Ref))
	if r.compiles(s) {
		return ""
	}
	return fmt.Sprintf("ERROR: 0:1: shader %d failed to compile", idOf(s.Ref))
}

func (r *Recorder) DeleteShader(s gl.Shader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[idOf(s.Ref)] = true
	r.record("DeleteShader", idOf(s.Ref))
}

func (r *Recorder) CreateProgram() gl.Program {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.id()
	r.programs[id] = nil
	r.record("CreateProgram")
	return gl.Program{Ref: id}
}

func (r *Recorder) AttachShader(p gl.Program, s gl.Shader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid := idOf(p.Ref)
	r.programs[pid] = append(r.programs[pid], idOf(s.Ref))
	r.record("AttachShader", pid, idOf(s.Ref))
}

func (r *Recorder) LinkProgram(p gl.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("LinkProgram", idOf(p.Ref))
}

func (r *Recorder) GetProgramLinkStatus(p gl.Program) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetProgramLinkStatus", idOf(p.Ref))
	return !r.FailLink && len(r.programs[idOf(p.Ref)]) == 2
}

func (r *Recorder) GetProgramInfoLog(p gl.Program) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetProgramInfoLog", idOf(p.Ref))
	if r.FailLink {
		return "ERROR: program failed to link"
	}
	return ""
}

func (r *Recorder) DeleteProgram(p gl.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[idOf(p.Ref)] = true
	r.record("DeleteProgram", idOf(p.Ref))
}

func (r *Recorder) UseProgram(p gl.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = idOf(p.Ref)
	r.record("UseProgram", r.program)
}

// GetAttribLocation hands out a new location per call, mapped back to the
// attribute name so that draws can report what each attribute received.
func (r *Recorder) GetAttribLocation(p gl.Program, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.MissingAttribs[name] {
		r.record("GetAttribLocation", idOf(p.Ref), name)
		return -1
	}
	for loc, n := range r.attribs {
		if n == name {
			return loc
		}
	}
	loc := len(r.attribs)
	r.attribs[loc] = name
	r.record("GetAttribLocation", idOf(p.Ref), name)
	return loc
}

func (r *Recorder) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetUniformLocation", idOf(p.Ref), name)
	return gl.Uniform{Ref: name}
}

func (r *Recorder) EnableVertexAttribArray(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("EnableVertexAttribArray", index)
}

func (r *Recorder) VertexAttribPointer(index, size int, typ gl.Enum, normalized bool, stride, offset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointers[index] = r.boundBuffer
	r.record("VertexAttribPointer", index, size, typ, normalized, stride, offset)
}

func (r *Recorder) Uniform1i(u gl.Uniform, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Uniform1i", u.Ref, v)
}

func (r *Recorder) Uniform2f(u gl.Uniform, x, y float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := u.Ref.(string); ok {
		r.uniforms[name] = [2]float32{x, y}
	}
	r.record("Uniform2f", u.Ref, x, y)
}

func (r *Recorder) CreateBuffer() gl.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("CreateBuffer")
	return gl.Buffer{Ref: r.id()}
}

func (r *Recorder) BindBuffer(target gl.Enum, b gl.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boundBuffer = idOf(b.Ref)
	r.record("BindBuffer", target, r.boundBuffer)
}

func (r *Recorder) BufferData(target gl.Enum, data []float32, usage gl.Enum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers[r.boundBuffer] = append([]float32(nil), data...)
	r.record("BufferData", target, len(data), usage)
}

func (r *Recorder) DeleteBuffer(b gl.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[idOf(b.Ref)] = true
	r.record("DeleteBuffer", idOf(b.Ref))
}

func (r *Recorder) CreateTexture() gl.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("CreateTexture")
	return gl.Texture{Ref: r.id()}
}

func (r *Recorder) ActiveTexture(unit gl.Enum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ActiveTexture", unit)
}

func (r *Recorder) BindTexture(target gl.Enum, t gl.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boundTexture = idOf(t.Ref)
	r.record("BindTexture", target, r.boundTexture)
}

func (r *Recorder) TexParameteri(target, pname gl.Enum, param gl.Enum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("TexParameteri", target, pname, param)
}

func (r *Recorder) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, typ gl.Enum, pixels []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textures[r.boundTexture] = append([]byte(nil), pixels...)
	r.record("TexImage2D", target, level, internalFormat, width, height, format, typ)
}

func (r *Recorder) DeleteTexture(t gl.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[idOf(t.Ref)] = true
	r.record("DeleteTexture", idOf(t.Ref))
}

func (r *Recorder) CanvasSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Width, r.Height
}

func (r *Recorder) Viewport(x, y, width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = [4]int{x, y, width, height}
	r.record("Viewport", x, y, width, height)
}

func (r *Recorder) ClearColor(red, green, blue, alpha float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ClearColor", red, green, blue, alpha)
}

func (r *Recorder) Clear(mask gl.Enum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Clear", mask)
}

func (r *Recorder) DrawArrays(mode gl.Enum, first, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attribs := make(map[string][]float32, len(r.pointers))
	for loc, buf := range r.pointers {
		attribs[r.attribs[loc]] = r.buffers[buf]
	}
	r.Draws = append(r.Draws, Draw{
		Mode:       mode,
		First:      first,
		Count:      count,
		Program:    gl.Program{Ref: r.program},
		Resolution: r.uniforms["u_resolution"],
		Viewport:   r.viewport,
		Attribs:    attribs,
	})
	r.record("DrawArrays", mode, first, count)
}

var _ gl.Context = (*Recorder)(nil)
