package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrUnexpectedFormat = errors.New("unexpected output format")

const noConflict = "no conflict"

const stringListSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {"type": "string"}
}`

var (
	listSchema = jsonschema.MustCompileString("https://pr-guidebook.local/schemas/list.json", stringListSchema)

	objectSchemas   = map[string]*jsonschema.Schema{}
	objectSchemasMu sync.Mutex

	codeFence  = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\n?```$")
	listMarker = regexp.MustCompile(`^(?:[-*+•◦▪‣]|\d+[.)])\s*`)
)

// List parses a JSON array of strings. The array may be fenced, or follow a
// short preamble when it opens a line and ends the answer. Anything else is
// split into lines instead, list markers stripped, and degraded is true.
func List(raw string) (items []string, degraded bool) {
	body := strings.TrimSpace(stripFence(raw))
	if parsed, ok := decodeList(body); ok {
		return compact(parsed), false
	}
	if strings.HasSuffix(body, "]") {
		for _, start := range lineStarts(body) {
			if !strings.HasPrefix(body[start:], "[") {
				continue
			}
			if parsed, ok := decodeList(body[start:]); ok {
				return compact(parsed), false
			}
		}
	}
	return splitLines(raw), true
}

// lineStarts returns the offset of the first non-blank byte of every line.
func lineStarts(body string) []int {
	var out []int
	offset := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		out = append(out, offset+len(line)-len(strings.TrimLeft(line, " \t")))
		offset += len(line)
	}
	return out
}

func decodeList(text string) ([]string, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	if err := listSchema.Validate(v); err != nil {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, false
	}
	return out, true
}

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IsNoConflict reports whether the answer opens with "no conflict".
func IsNoConflict(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), noConflict)
}

// Verdict is Object for stages whose prompt allows a bare "No conflict"
// answer, which short-circuits to {status: "no conflict"}.
func Verdict(raw string, keys []string) (fields map[string]any, degraded bool) {
	if IsNoConflict(raw) {
		return map[string]any{"status": noConflict}, false
	}
	return Object(raw, keys)
}

// Object extracts the first balanced JSON object from raw and requires
// every key in keys. Missing keys are filled with "". When no object can be
// decoded each key maps to the trimmed raw text and degraded is true.
func Object(raw string, keys []string) (fields map[string]any, degraded bool) {
	span, ok := firstObject(raw)
	if ok {
		var v interface{}
		if err := json.Unmarshal([]byte(span), &v); err == nil {
			if obj, isObj := v.(map[string]interface{}); isObj {
				if err := objectSchema(keys).Validate(v); err == nil {
					return obj, false
				}
				for _, key := range keys {
					if _, present := obj[key]; !present {
						obj[key] = ""
					}
				}
				return obj, true
			}
		}
	}
	trimmed := strings.TrimSpace(raw)
	fields = make(map[string]any, len(keys))
	for _, key := range keys {
		fields[key] = trimmed
	}
	return fields, true
}

// firstObject returns the first balanced {...} span, ignoring braces that
// appear inside JSON strings.
func firstObject(raw string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, c := range raw {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

func objectSchema(keys []string) *jsonschema.Schema {
	if keys == nil {
		keys = []string{}
	}
	id := strings.Join(keys, ",")
	objectSchemasMu.Lock()
	defer objectSchemasMu.Unlock()
	if s, ok := objectSchemas[id]; ok {
		return s
	}
	required, _ := json.Marshal(keys)
	doc := fmt.Sprintf(`{"$schema": "http://json-schema.org/draft-07/schema#", "type": "object", "required": %s}`, required)
	s := jsonschema.MustCompileString(fmt.Sprintf("https://pr-guidebook.local/schemas/object-%d.json", len(objectSchemas)), doc)
	objectSchemas[id] = s
	return s
}

// Sections splits raw on the bold **heading** markers. Content before the
// first marker is dropped; each heading maps to the text up to the next one.
func Sections(raw string, headings []string) (map[string]string, error) {
	if len(headings) == 0 {
		return nil, fmt.Errorf("no headings given: %w", ErrUnexpectedFormat)
	}
	quoted := make([]string, 0, len(headings))
	for _, h := range headings {
		quoted = append(quoted, regexp.QuoteMeta(h))
	}
	re := regexp.MustCompile(`\*\*(` + strings.Join(quoted, "|") + `)\*\*`)
	locs := re.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) < 2 {
		return nil, ErrUnexpectedFormat
	}
	out := make(map[string]string, len(locs))
	for i, loc := range locs {
		heading := raw[loc[2]:loc[3]]
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out[heading] = strings.TrimSpace(raw[loc[1]:end])
	}
	return out, nil
}

// Token lower-cases and trims raw, dropping surrounding punctuation and
// quotes. It returns "" unless the result is one of allowed.
func Token(raw string, allowed ...string) string {
	tok := strings.ToLower(strings.TrimSpace(stripFence(raw)))
	tok = strings.Trim(tok, " \t\r\n.,;:!?\"'`*_()[]{}")
	for _, a := range allowed {
		if tok == a {
			return tok
		}
	}
	return ""
}

func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}
