package interpret

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Source selects the interpretation convention. It is derived by the
// caller, typically from a filename prefix.
type Source string

const (
	// SourceChatGPT interprets the prompt chunk as a ChatGPT image export.
	SourceChatGPT Source = "chatgpt"
	// SourceGeneric interprets ComfyUI / Automatic1111 conventions.
	SourceGeneric Source = "generic"
)

// AIInfo is the structured metadata recovered from an image.
type AIInfo struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	Tags   string `json:"tags"`
	Notes  string `json:"notes"`
}

// Result carries the extracted info plus any non-fatal anomalies hit
// along the way. Warnings are for callers and tests; they never abort
// interpretation.
type Result struct {
	Info     AIInfo
	Warnings []string
}

// minPromptLen is the shortest string accepted as a prompt when mining
// workflow or prompt JSON. Shorter strings are almost always node labels.
const minPromptLen = 10

// Interpret extracts AIInfo from parsed PNG chunks.
func Interpret(chunks map[string]string, source Source) Result {
	if source == SourceChatGPT {
		return interpretChatGPT(chunks)
	}
	return interpretGeneric(chunks)
}

// chatGPTExport mirrors the JSON object ChatGPT embeds in the prompt chunk.
type chatGPTExport struct {
	Prompt         string  `json:"prompt"`
	InternalPrompt string  `json:"internal_prompt"`
	Tool           string  `json:"tool"`
	DateGenerated  string  `json:"date_generated"`
	Filename       string  `json:"filename"`
	Style          string  `json:"style"`
	AspectRatio    string  `json:"aspect_ratio"`
	Resolution     string  `json:"resolution"`
	FileSizeMB     float64 `json:"file_size_mb"`
	SourceImage    string  `json:"source_image"`
}

func interpretChatGPT(chunks map[string]string) Result {
	var res Result
	var notes []string

	raw, ok := chunks["prompt"]
	if !ok || raw == "" {
		res.Info.Tags = "ChatGPT,AI-Generated"
		return res
	}

	var export chatGPTExport
	if err := json.Unmarshal([]byte(raw), &export); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("chatgpt prompt chunk is not valid JSON: %v", err))
		res.Info.Notes = "⚠️ ChatGPT data present but could not be parsed"
		res.Info.Tags = "ChatGPT,AI-Generated"
		return res
	}

	var parts []string
	if export.Prompt != "" {
		parts = append(parts, "USER PROMPT:\n"+export.Prompt)
	}
	if export.InternalPrompt != "" {
		parts = append(parts, "INTERNAL PROMPT:\n"+export.InternalPrompt)
	}
	res.Info.Prompt = strings.TrimSpace(strings.Join(parts, "\n\n"))

	if export.Tool != "" {
		res.Info.Model = export.Tool
		notes = append(notes, "🤖 Tool: "+export.Tool)
	}
	if export.DateGenerated != "" {
		notes = append(notes, "📅 Generated: "+export.DateGenerated)
	}
	if export.Filename != "" {
		notes = append(notes, "📄 Original: "+export.Filename)
	}
	if export.Style != "" {
		notes = append(notes, "🎨 Style: "+export.Style)
	}
	if export.AspectRatio != "" {
		notes = append(notes, "📐 Aspect Ratio: "+export.AspectRatio)
	}
	if export.Resolution != "" {
		notes = append(notes, "🖥️ Resolution: "+export.Resolution)
	}
	if export.FileSizeMB != 0 {
		notes = append(notes, fmt.Sprintf("💾 File Size: %g MB", export.FileSizeMB))
	}
	if export.SourceImage != "" {
		notes = append(notes, "🖼️ Source Image: "+export.SourceImage)
	}

	res.Info.Notes = strings.Join(notes, "\n")
	res.Info.Tags = "ChatGPT,AI-Generated,Image-Gen"
	return res
}

// novelAIComment mirrors the settings JSON NovelAI writes to the
// Comment chunk; the prompt itself usually lives in Description.
type novelAIComment struct {
	Prompt  string  `json:"prompt"`
	UC      string  `json:"uc"`
	Steps   int     `json:"steps"`
	Sampler string  `json:"sampler"`
	Scale   float64 `json:"scale"`
	Seed    int64   `json:"seed"`
}

func interpretGeneric(chunks map[string]string) Result {
	var res Result
	var notes []string

	workflow, hasWorkflow := chunks["workflow"]
	promptChunk, hasPrompt := chunks["prompt"]
	promptConsumed := false

	if hasWorkflow {
		note, prompt, err := mineWorkflow(workflow)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("workflow chunk is not valid JSON: %v", err))
			notes = append(notes, "Raw workflow data present (unparsed)")
		} else {
			notes = append(notes, note)
			if prompt != "" {
				res.Info.Prompt = prompt
			}
		}
	}

	if hasPrompt && res.Info.Prompt == "" {
		if prompt, ok := minePromptJSON(promptChunk); ok {
			if prompt != "" {
				res.Info.Prompt = prompt
			}
			promptConsumed = true
		}
	}
	if hasPrompt && !promptConsumed && res.Info.Prompt == "" && len(promptChunk) > 5 {
		// Not JSON at all; treat the raw chunk as the prompt.
		res.Info.Prompt = promptChunk
	}

	if params, ok := chunks["parameters"]; ok {
		if res.Info.Prompt == "" {
			res.Info.Prompt = params
		}
		notes = append(notes, "A1111 Parameters detected")
	}

	// NovelAI marks itself in Software, keeps the prompt in Description
	// and the generation settings as JSON in Comment.
	if comment, ok := chunks["Comment"]; ok {
		var nai novelAIComment
		if err := json.Unmarshal([]byte(comment), &nai); err == nil && (nai.Prompt != "" || nai.Sampler != "") {
			if res.Info.Prompt == "" && nai.Prompt != "" {
				res.Info.Prompt = nai.Prompt
			}
			if nai.Sampler != "" {
				notes = append(notes, fmt.Sprintf("Sampler: %s (%d steps)", nai.Sampler, nai.Steps))
			}
			if nai.UC != "" {
				notes = append(notes, "Undesired content: "+nai.UC)
			}
			if strings.Contains(chunks["Software"], "NovelAI") && res.Info.Tags == "" {
				res.Info.Tags = "NovelAI,AI-Generated"
			}
		}
	}

	// The PNG Description keyword is the last resort for a prompt.
	if res.Info.Prompt == "" {
		if desc := strings.TrimSpace(chunks["Description"]); desc != "" {
			res.Info.Prompt = desc
		}
	}

	if software, ok := chunks["Software"]; ok {
		res.Info.Model = software
	}
	if software, ok := chunks["software"]; ok {
		res.Info.Model = software
	}

	if (hasWorkflow || hasPrompt) && res.Info.Tags == "" {
		res.Info.Tags = "ComfyUI,AI-Generated"
	}

	res.Info.Notes = strings.Join(notes, "\n")
	return res
}

// mineWorkflow counts nodes, summarizes node types and searches for a
// prompt inside a ComfyUI workflow document. Two shapes exist: the
// editor export uses a "nodes" array with per-node "type", while the
// API format is a flat object keyed by node id with "class_type".
func mineWorkflow(raw string) (note string, prompt string, err error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", "", err
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return "ComfyUI Workflow (0 nodes)", "", nil
	}

	if nodes, ok := obj["nodes"].([]any); ok {
		return mineNodeArray(nodes)
	}
	return mineFlatGraph(obj)
}

func mineNodeArray(nodes []any) (string, string, error) {
	var types []string
	var prompt string

	for _, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := node["type"].(string); ok {
			types = append(types, t)
		}
		if prompt != "" {
			continue
		}
		if t, _ := node["type"].(string); t == "CLIPTextEncode" {
			if widgets, ok := node["widgets_values"].([]any); ok && len(widgets) > 0 {
				if s, ok := widgets[0].(string); ok && len(s) > minPromptLen {
					prompt = s
				}
			}
		}
	}

	return summarizeNodes(len(nodes), types), prompt, nil
}

func mineFlatGraph(obj map[string]any) (string, string, error) {
	var types []string
	var prompt string
	count := 0

	for _, id := range sortedKeys(obj) {
		node, ok := obj[id].(map[string]any)
		if !ok {
			continue
		}
		count++
		if t, ok := node["class_type"].(string); ok {
			types = append(types, t)
		}
		if prompt != "" {
			continue
		}
		if inputs, ok := node["inputs"].(map[string]any); ok {
			if s, ok := inputs["text"].(string); ok && len(s) > minPromptLen {
				prompt = s
			}
		}
	}

	return summarizeNodes(count, types), prompt, nil
}

func summarizeNodes(count int, types []string) string {
	seen := make(map[string]bool)
	var unique []string
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	sort.Strings(unique)

	if len(unique) == 0 {
		return fmt.Sprintf("ComfyUI Workflow (%d nodes)", count)
	}
	return fmt.Sprintf("ComfyUI Workflow (%d nodes): %s", count, strings.Join(unique, ", "))
}

// minePromptJSON looks through a JSON object's properties for the first
// string longer than minPromptLen. Returns ok=false when raw is not a
// JSON object at all.
func minePromptJSON(raw string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", false
	}

	for _, key := range sortedKeys(obj) {
		if s, ok := obj[key].(string); ok && len(s) > minPromptLen {
			return s, true
		}
	}
	return "", true
}

// sortedKeys orders map keys numerically when they are all numbers
// (ComfyUI node ids) and lexically otherwise, so "first match" is
// deterministic across runs.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	allNumeric := true
	for k := range m {
		keys = append(keys, k)
		if _, err := strconv.Atoi(k); err != nil {
			allNumeric = false
		}
	}

	if allNumeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		})
	} else {
		sort.Strings(keys)
	}
	return keys
}
