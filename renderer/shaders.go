package renderer

// vertexShaderSource maps the pixel-space quad into clip space. The Y axis is
// flipped because pixel rows grow downwards while clip space grows upwards.
const vertexShaderSource = `
attribute vec2 a_position;
attribute vec2 a_texCoord;

uniform vec2 u_resolution;

varying vec2 v_texCoord;

void main() {
	// pixels -> 0..1 -> 0..2 -> -1..+1
	vec2 zeroToOne = a_position / u_resolution;
	vec2 zeroToTwo = zeroToOne * 2.0;
	vec2 clipSpace = zeroToTwo - 1.0;

	gl_Position = vec4(clipSpace * vec2(1, -1), 0, 1);

	v_texCoord = a_texCoord;
}
`

// fragmentShaderSource outputs the texture sample unmodified.
const fragmentShaderSource = `
precision mediump float;

uniform sampler2D u_image;

varying vec2 v_texCoord;

void main() {
	gl_FragColor = texture2D(u_image, v_texCoord);
}
`

// Attribute and uniform names shared by the shaders above and the renderer.
const (
	attrPosition      = "a_position"
	attrTexCoord      = "a_texCoord"
	uniformResolution = "u_resolution"
	uniformImage      = "u_image"
)
