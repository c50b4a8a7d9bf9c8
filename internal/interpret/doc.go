// Package interpret turns raw PNG text chunks into structured
// generation metadata.
//
// Two conventions are understood: ChatGPT image exports, which carry a
// single JSON object in the "prompt" chunk, and the generic
// ComfyUI/Automatic1111 convention using "workflow", "prompt" and
// "parameters" chunks. Interpretation is best-effort: malformed JSON
// degrades to note lines and inspectable warnings, never an error.
package interpret
