//go:build js && wasm

package log

import "syscall/js"

// consoleWriter forwards each formatted record to `console.log`.
type consoleWriter struct {
	console js.Value
}

func (w consoleWriter) Write(p []byte) (int, error) {
	w.console.Call("log", string(p))
	return len(p), nil
}

// SetConsoleSink redirects every logger to the browser console.
func SetConsoleSink() {
	SetPlainSink(consoleWriter{console: js.Global().Get("console")})
}
