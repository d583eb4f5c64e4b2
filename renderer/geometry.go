package renderer

// vertexCount is the number of vertices in the two triangles of the quad.
const vertexCount = 6

// TexCoords covers the unit square with two triangles. It is independent of
// the frame size and is uploaded once.
var TexCoords = [vertexCount * 2]float32{
	0.0, 0.0,
	1.0, 0.0,
	0.0, 1.0,
	0.0, 1.0,
	1.0, 0.0,
	1.0, 1.0,
}

// Quad returns the pixel-space rectangle (x, y, width, height) as a six
// vertex triangle list, in the same winding as TexCoords.
func Quad(x, y, width, height float32) [vertexCount * 2]float32 {
	x1, x2 := x, x+width
	y1, y2 := y, y+height

	return [vertexCount * 2]float32{
		x1, y1,
		x2, y1,
		x1, y2,
		x1, y2,
		x2, y1,
		x2, y2,
	}
}

// ClipSpace applies the vertex shader transform to a pixel coordinate:
// clip = ((p / res) * 2 - 1) * (1, -1).
// The top-left pixel lands on (-1, 1) and (resX, resY) on (1, -1).
func ClipSpace(px, py, resX, resY float32) (float32, float32) {
	x := (px/resX)*2 - 1
	y := (py/resY)*2 - 1

	return x, -y
}
