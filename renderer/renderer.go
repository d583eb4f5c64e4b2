// Package renderer draws frames onto a WebGL canvas through a textured quad.
//
// The GPU resources (program, vertex buffers and texture) are created once
// by New and reused by every Draw; a frame only costs a texture upload and a
// draw call.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/esimov/facecam-gl/frame"
	"github.com/esimov/facecam-gl/gl"
	"github.com/esimov/facecam-gl/log"
)

var (
	// ErrUnsupported is returned by New when no WebGL context is available.
	ErrUnsupported = errors.New("renderer: webgl rendering unsupported")
	// ErrReleased is returned by Draw once the GPU resources were released.
	ErrReleased = errors.New("renderer: released")
)

// ShaderError reports a shader stage that failed to compile.
type ShaderError struct {
	Stage string
	Log   string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("renderer: %s shader: %s", e.Stage, e.Log)
}

// LinkError reports a program that failed to link.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("renderer: link program: %s", e.Log)
}

// Surface is the drawing target the renderer acquires its context from.
type Surface interface {
	Context() (gl.Context, error)
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func() (gl.Context, error)

func (f SurfaceFunc) Context() (gl.Context, error) { return f() }

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger replaces the default "renderer" logger.
func WithLogger(l log.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// Renderer owns the GPU resources needed to blit a frame.
type Renderer struct {
	mu     sync.Mutex
	logger log.Logger
	gl     gl.Context

	vertexShader   gl.Shader
	fragmentShader gl.Shader
	program        gl.Program

	positionLoc   int
	texCoordLoc   int
	resolutionLoc gl.Uniform
	imageLoc      gl.Uniform

	positionBuf gl.Buffer
	texCoordBuf gl.Buffer
	texture     gl.Texture

	// Size of the quad currently held by positionBuf.
	quadW, quadH int
	released     bool
}

// New acquires the surface context and builds the blit pipeline.
// It fails with ErrUnsupported before touching the GPU when the surface has
// no context, and with a *ShaderError or *LinkError when the program can't be
// built, in which case the diagnostic is logged as well.
func New(surface Surface, opts ...Option) (*Renderer, error) {
	r := &Renderer{logger: log.New("renderer")}
	for _, opt := range opts {
		opt(r)
	}

	ctx, err := surface.Context()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if ctx == nil {
		return nil, ErrUnsupported
	}
	r.gl = ctx

	if err := r.buildProgram(); err != nil {
		return nil, err
	}
	if err := r.lookupAttribs(); err != nil {
		return nil, err
	}
	r.resolutionLoc = ctx.GetUniformLocation(r.program, uniformResolution)
	r.imageLoc = ctx.GetUniformLocation(r.program, uniformImage)

	r.positionBuf = ctx.CreateBuffer()
	r.texCoordBuf = ctx.CreateBuffer()
	ctx.BindBuffer(gl.ARRAY_BUFFER, r.texCoordBuf)
	ctx.BufferData(gl.ARRAY_BUFFER, TexCoords[:], gl.STATIC_DRAW)

	r.texture = ctx.CreateTexture()
	ctx.BindTexture(gl.TEXTURE_2D, r.texture)

	// Set the parameters so we can render any size image.
	ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	return r, nil
}

// compileShader compiles one stage, deleting it again on failure.
func (r *Renderer) compileShader(typ gl.Enum, stage, src string) (gl.Shader, error) {
	shader := r.gl.CreateShader(typ)
	r.gl.ShaderSource(shader, src)
	r.gl.CompileShader(shader)
	if r.gl.GetShaderCompileStatus(shader) {
		return shader, nil
	}

	info := r.gl.GetShaderInfoLog(shader)
	r.logger.Errorf("%s shader: %s", stage, info)
	r.gl.DeleteShader(shader)

	return gl.Shader{}, &ShaderError{Stage: stage, Log: info}
}

func (r *Renderer) buildProgram() error {
	vs, err := r.compileShader(gl.VERTEX_SHADER, "vertex", vertexShaderSource)
	if err != nil {
		return err
	}
	fs, err := r.compileShader(gl.FRAGMENT_SHADER, "fragment", fragmentShaderSource)
	if err != nil {
		r.gl.DeleteShader(vs)
		return err
	}

	program := r.gl.CreateProgram()
	r.gl.AttachShader(program, vs)
	r.gl.AttachShader(program, fs)
	r.gl.LinkProgram(program)

	if !r.gl.GetProgramLinkStatus(program) {
		info := r.gl.GetProgramInfoLog(program)
		r.logger.Errorf("link program: %s", info)
		r.gl.DeleteProgram(program)
		r.gl.DeleteShader(vs)
		r.gl.DeleteShader(fs)
		return &LinkError{Log: info}
	}
	r.vertexShader, r.fragmentShader, r.program = vs, fs, program

	return nil
}

// lookupAttribs resolves the vertex attribute locations. A linked program can
// still lack an attribute the draw binds, in which case the pipeline is torn
// down the same way as for a link failure.
func (r *Renderer) lookupAttribs() error {
	r.positionLoc = r.gl.GetAttribLocation(r.program, attrPosition)
	r.texCoordLoc = r.gl.GetAttribLocation(r.program, attrTexCoord)

	for _, a := range []struct {
		name string
		loc  int
	}{{attrPosition, r.positionLoc}, {attrTexCoord, r.texCoordLoc}} {
		if a.loc >= 0 {
			continue
		}
		info := fmt.Sprintf("attribute %s not found", a.name)
		r.logger.Errorf("link program: %s", info)
		r.gl.DeleteProgram(r.program)
		r.gl.DeleteShader(r.vertexShader)
		r.gl.DeleteShader(r.fragmentShader)
		r.program, r.vertexShader, r.fragmentShader = gl.Program{}, gl.Shader{}, gl.Shader{}
		return &LinkError{Log: info}
	}
	return nil
}

// Draw uploads the frame into the texture and draws it full size, anchored at
// the top-left corner of the canvas.
func (r *Renderer) Draw(f *frame.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrReleased
	}
	ctx := r.gl

	if f.Width != r.quadW || f.Height != r.quadH {
		quad := Quad(0, 0, float32(f.Width), float32(f.Height))
		ctx.BindBuffer(gl.ARRAY_BUFFER, r.positionBuf)
		ctx.BufferData(gl.ARRAY_BUFFER, quad[:], gl.STATIC_DRAW)
		r.quadW, r.quadH = f.Width, f.Height
	}

	// Upload the frame into the texture.
	ctx.ActiveTexture(gl.TEXTURE0)
	ctx.BindTexture(gl.TEXTURE_2D, r.texture)
	ctx.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, f.Width, f.Height, gl.RGBA, gl.UNSIGNED_BYTE, f.Pix)

	width, height := ctx.CanvasSize()
	ctx.Viewport(0, 0, width, height)
	ctx.ClearColor(0, 0, 0, 0)
	ctx.Clear(gl.COLOR_BUFFER_BIT)

	ctx.UseProgram(r.program)

	ctx.EnableVertexAttribArray(r.positionLoc)
	ctx.BindBuffer(gl.ARRAY_BUFFER, r.positionBuf)
	ctx.VertexAttribPointer(r.positionLoc, 2, gl.FLOAT, false, 0, 0)

	ctx.EnableVertexAttribArray(r.texCoordLoc)
	ctx.BindBuffer(gl.ARRAY_BUFFER, r.texCoordBuf)
	ctx.VertexAttribPointer(r.texCoordLoc, 2, gl.FLOAT, false, 0, 0)

	ctx.Uniform2f(r.resolutionLoc, float32(width), float32(height))
	ctx.Uniform1i(r.imageLoc, 0)

	ctx.DrawArrays(gl.TRIANGLES, 0, vertexCount)

	return nil
}

// Release deletes the GPU resources. Calling it more than once is a no-op.
func (r *Renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true

	r.gl.DeleteTexture(r.texture)
	r.gl.DeleteBuffer(r.positionBuf)
	r.gl.DeleteBuffer(r.texCoordBuf)
	r.gl.DeleteProgram(r.program)
	r.gl.DeleteShader(r.vertexShader)
	r.gl.DeleteShader(r.fragmentShader)
}
