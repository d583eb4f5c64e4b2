// Package gl exposes the slice of the WebGL 1 API used to blit a frame onto a
// canvas. The browser implementation lives in webgl.go; tests use gltest.
package gl

import "errors"

// ErrUnsupported is returned when the surface cannot hand out a WebGL context.
var ErrUnsupported = errors.New("gl: webgl is not supported")

// Enum is a WebGL enumerated value.
type Enum uint32

// WebGL 1 constants, with the values defined by the WebGL specification.
const (
	TRIANGLES Enum = 0x0004

	COLOR_BUFFER_BIT Enum = 0x4000

	ARRAY_BUFFER Enum = 0x8892
	STATIC_DRAW  Enum = 0x88E4

	FLOAT         Enum = 0x1406
	UNSIGNED_BYTE Enum = 0x1401

	FRAGMENT_SHADER Enum = 0x8B30
	VERTEX_SHADER   Enum = 0x8B31
	COMPILE_STATUS  Enum = 0x8B81
	LINK_STATUS     Enum = 0x8B82

	TEXTURE_2D         Enum = 0x0DE1
	TEXTURE0           Enum = 0x84C0
	TEXTURE_MAG_FILTER Enum = 0x2800
	TEXTURE_MIN_FILTER Enum = 0x2801
	TEXTURE_WRAP_S     Enum = 0x2802
	TEXTURE_WRAP_T     Enum = 0x2803
	NEAREST            Enum = 0x2600
	CLAMP_TO_EDGE      Enum = 0x812F

	RGBA Enum = 0x1908
)

// Handles to GPU objects. The zero value of each is invalid.
type (
	Shader  struct{ Ref any }
	Program struct{ Ref any }
	Buffer  struct{ Ref any }
	Texture struct{ Ref any }
	Uniform struct{ Ref any }
)

func (s Shader) Valid() bool  { return s.Ref != nil }
func (p Program) Valid() bool { return p.Ref != nil }
func (b Buffer) Valid() bool  { return b.Ref != nil }
func (t Texture) Valid() bool { return t.Ref != nil }
func (u Uniform) Valid() bool { return u.Ref != nil }

// Context is a WebGL rendering context bound to one drawing surface.
type Context interface {
	CreateShader(typ Enum) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderCompileStatus(s Shader) bool
	GetShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgramLinkStatus(p Program) bool
	GetProgramInfoLog(p Program) string
	DeleteProgram(p Program)
	UseProgram(p Program)

	GetAttribLocation(p Program, name string) int
	GetUniformLocation(p Program, name string) Uniform
	EnableVertexAttribArray(index int)
	VertexAttribPointer(index, size int, typ Enum, normalized bool, stride, offset int)
	Uniform1i(u Uniform, v int)
	Uniform2f(u Uniform, x, y float32)

	CreateBuffer() Buffer
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []float32, usage Enum)
	DeleteBuffer(b Buffer)

	CreateTexture() Texture
	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	TexParameteri(target, pname Enum, param Enum)
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, typ Enum, pixels []byte)
	DeleteTexture(t Texture)

	// CanvasSize reports the pixel size of the canvas the context draws into.
	CanvasSize() (width, height int)
	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask Enum)
	DrawArrays(mode Enum, first, count int)
}
