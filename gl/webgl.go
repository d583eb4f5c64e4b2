//go:build js && wasm

package gl

import (
	"syscall/js"
	"unsafe"
)

var _ Context = (*webgl)(nil)

// webgl implements Context on top of a browser WebGLRenderingContext.
type webgl struct {
	ctx    js.Value
	canvas js.Value
}

// FromCanvas requests a "webgl" context from the canvas element, falling
// back to "experimental-webgl" for older browsers.
func FromCanvas(canvas js.Value) (Context, error) {
	for _, name := range []string{"webgl", "experimental-webgl"} {
		ctx := canvas.Call("getContext", name)
		if ctx.Truthy() {
			return &webgl{ctx: ctx, canvas: canvas}, nil
		}
	}
	return nil, ErrUnsupported
}

func ref(v js.Value) any {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return v
}

func value(r any) js.Value {
	if v, ok := r.(js.Value); ok {
		return v
	}
	return js.Null()
}

// typedArrayOf copies a Go slice into a freshly allocated JS typed array of
// the matching element type.
func typedArrayOf[T float32 | byte](data []T) js.Value {
	var (
		zero T
		size = int(unsafe.Sizeof(zero))
		raw  []byte
	)
	if len(data) > 0 {
		raw = unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*size)
	}
	buf := js.Global().Get("Uint8Array").New(len(raw))
	js.CopyBytesToJS(buf, raw)

	if size == 1 {
		return buf
	}
	return js.Global().Get("Float32Array").New(buf.Get("buffer"))
}

func (w *webgl) call(method string, args ...any) js.Value {
	for i, a := range args {
		if e, ok := a.(Enum); ok {
			args[i] = uint32(e)
		}
	}
	return w.ctx.Call(method, args...)
}

func (w *webgl) CreateShader(typ Enum) Shader {
	return Shader{ref(w.call("createShader", typ))}
}

func (w *webgl) ShaderSource(s Shader, src string) {
	w.call("shaderSource", value(s.Ref), src)
}

func (w *webgl) CompileShader(s Shader) {
	w.call("compileShader", value(s.Ref))
}

func (w *webgl) GetShaderCompileStatus(s Shader) bool {
	return w.call("getShaderParameter", value(s.Ref), COMPILE_STATUS).Truthy()
}

func (w *webgl) GetShaderInfoLog(s Shader) string {
	return w.call("getShaderInfoLog", value(s.Ref)).String()
}

func (w *webgl) DeleteShader(s Shader) {
	w.call("deleteShader", value(s.Ref))
}

func (w *webgl) CreateProgram() Program {
	return Program{ref(w.call("createProgram"))}
}

func (w *webgl) AttachShader(p Program, s Shader) {
	w.call("attachShader", value(p.Ref), value(s.Ref))
}

func (w *webgl) LinkProgram(p Program) {
	w.call("linkProgram", value(p.Ref))
}

func (w *webgl) GetProgramLinkStatus(p Program) bool {
	return w.call("getProgramParameter", value(p.Ref), LINK_STATUS).Truthy()
}

func (w *webgl) GetProgramInfoLog(p Program) string {
	return w.call("getProgramInfoLog", value(p.Ref)).String()
}

func (w *webgl) DeleteProgram(p Program) {
	w.call("deleteProgram", value(p.Ref))
}

func (w *webgl) UseProgram(p Program) {
	w.call("useProgram", value(p.Ref))
}

func (w *webgl) GetAttribLocation(p Program, name string) int {
	return w.call("getAttribLocation", value(p.Ref), name).Int()
}

func (w *webgl) GetUniformLocation(p Program, name string) Uniform {
	return Uniform{ref(w.call("getUniformLocation", value(p.Ref), name))}
}

func (w *webgl) EnableVertexAttribArray(index int) {
	w.call("enableVertexAttribArray", index)
}

func (w *webgl) VertexAttribPointer(index, size int, typ Enum, normalized bool, stride, offset int) {
	w.call("vertexAttribPointer", index, size, typ, normalized, stride, offset)
}

func (w *webgl) Uniform1i(u Uniform, v int) {
	w.call("uniform1i", value(u.Ref), v)
}

func (w *webgl) Uniform2f(u Uniform, x, y float32) {
	w.call("uniform2f", value(u.Ref), x, y)
}

func (w *webgl) CreateBuffer() Buffer {
	return Buffer{ref(w.call("createBuffer"))}
}

func (w *webgl) BindBuffer(target Enum, b Buffer) {
	w.call("bindBuffer", target, value(b.Ref))
}

func (w *webgl) BufferData(target Enum, data []float32, usage Enum) {
	w.call("bufferData", target, typedArrayOf(data), usage)
}

func (w *webgl) DeleteBuffer(b Buffer) {
	w.call("deleteBuffer", value(b.Ref))
}

func (w *webgl) CreateTexture() Texture {
	return Texture{ref(w.call("createTexture"))}
}

func (w *webgl) ActiveTexture(unit Enum) {
	w.call("activeTexture", unit)
}

func (w *webgl) BindTexture(target Enum, t Texture) {
	w.call("bindTexture", target, value(t.Ref))
}

func (w *webgl) TexParameteri(target, pname Enum, param Enum) {
	w.call("texParameteri", target, pname, param)
}

func (w *webgl) TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, typ Enum, pixels []byte) {
	w.call("texImage2D", target, level, internalFormat, width, height, 0, format, typ, typedArrayOf(pixels))
}

func (w *webgl) DeleteTexture(t Texture) {
	w.call("deleteTexture", value(t.Ref))
}

func (w *webgl) CanvasSize() (int, int) {
	return w.canvas.Get("width").Int(), w.canvas.Get("height").Int()
}

func (w *webgl) Viewport(x, y, width, height int) {
	w.call("viewport", x, y, width, height)
}

func (w *webgl) ClearColor(r, g, b, a float32) {
	w.call("clearColor", r, g, b, a)
}

func (w *webgl) Clear(mask Enum) {
	w.call("clear", mask)
}

func (w *webgl) DrawArrays(mode Enum, first, count int) {
	w.call("drawArrays", mode, first, count)
}
