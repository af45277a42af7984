package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.md
var embedded embed.FS

type Shape string

const (
	ShapeList     Shape = "list"
	ShapeObject   Shape = "object"
	ShapeSections Shape = "sections"
	ShapeText     Shape = "text"
	ShapeToken    Shape = "token"
)

// Contract is the output format a stage prompt asks the oracle for. It is
// read from the template frontmatter so the parser and the prompt agree.
type Contract struct {
	Stage    string   `yaml:"stage"`
	Shape    Shape    `yaml:"shape"`
	Keys     []string `yaml:"keys"`
	Headings []string `yaml:"headings"`
	Tokens   []string `yaml:"tokens"`
}

// Data is everything a stage prompt may reference. Empty optional fields
// drop their whole block from the prompt.
type Data struct {
	Owner           string
	Repo            string
	IssueNumber     int
	Title           string
	Body            string
	RepoDescription string
	Guidelines      string
	PRTitle         string
	PRDescription   string
	Diff            string
	Level           int
}

type view struct {
	Data
	Contract       Contract
	OutputContract string
	Detail         string
}

type entry struct {
	contract Contract
	tmpl     *template.Template
}

// Library holds the parsed stage templates.
type Library struct {
	entries map[string]entry
}

// Load parses every templates/*.md file in fsys.
func Load(fsys fs.FS) (*Library, error) {
	names, err := fs.Glob(fsys, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	lib := &Library{entries: make(map[string]entry, len(names))}
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		contract, body, err := parseFrontmatter(content)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if contract.Stage == "" {
			contract.Stage = strings.TrimSuffix(path.Base(name), ".md")
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("compile template %s: %w", name, err)
		}
		lib.entries[contract.Stage] = entry{contract: contract, tmpl: tmpl}
	}
	return lib, nil
}

func parseFrontmatter(content []byte) (Contract, string, error) {
	str := string(content)
	if !strings.HasPrefix(str, "---\n") {
		return Contract{}, str, nil
	}
	end := strings.Index(str[4:], "\n---\n")
	if end == -1 {
		return Contract{}, str, nil
	}
	var c Contract
	if err := yaml.Unmarshal([]byte(str[4:4+end]), &c); err != nil {
		return Contract{}, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return c, strings.TrimLeft(str[4+end+5:], "\n"), nil
}

// ContractFor returns the output contract of stage.
func (l *Library) ContractFor(stage string) (Contract, bool) {
	e, ok := l.entries[stage]
	return e.contract, ok
}

// Stages lists the stages that have templates.
func (l *Library) Stages() []string {
	out := make([]string, 0, len(l.entries))
	for name := range l.entries {
		out = append(out, name)
	}
	return out
}

// Build renders the prompt for stage.
func (l *Library) Build(stage string, data Data) (string, error) {
	e, ok := l.entries[stage]
	if !ok {
		return "", fmt.Errorf("no prompt template for stage %q", stage)
	}
	var buf bytes.Buffer
	v := view{
		Data:           data,
		Contract:       e.contract,
		OutputContract: renderContract(e.contract),
		Detail:         detailTier(data.Level),
	}
	if err := e.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute %s: %w", stage, err)
	}
	return collapseBlankLines(buf.String()), nil
}

func renderContract(c Contract) string {
	switch c.Shape {
	case ShapeList:
		return "Respond with only a JSON array of strings, one entry per item, in order. Do not wrap it in an object and do not add prose."
	case ShapeObject:
		quoted := make([]string, 0, len(c.Keys))
		for _, k := range c.Keys {
			quoted = append(quoted, `"`+k+`"`)
		}
		return fmt.Sprintf("Respond with only a JSON object with exactly these keys: %s. Do not add prose before or after it.", strings.Join(quoted, ", "))
	case ShapeSections:
		var b strings.Builder
		b.WriteString("Use these exact headings in bold, verbatim and in this order:\n")
		for _, h := range c.Headings {
			b.WriteString("**")
			b.WriteString(h)
			b.WriteString("**\n")
		}
		return strings.TrimRight(b.String(), "\n")
	case ShapeToken:
		return fmt.Sprintf("Answer with exactly one word, one of: %s. Nothing else.", strings.Join(c.Tokens, ", "))
	default:
		return "Respond in markdown."
	}
}

var detailTiers = map[int]string{
	1: "Keep it minimal: only the few essential items, one short line each.",
	2: "Keep it brief: short items with little explanation.",
	3: "Use a moderate level of detail: concrete items with a short explanation each.",
	4: "Be detailed: name the files, functions and commands involved where you can.",
	5: "Be exhaustive: break the work into fine-grained items and explain the reasoning behind each.",
}

func detailTier(level int) string {
	if t, ok := detailTiers[level]; ok {
		return t
	}
	return detailTiers[3]
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}

var (
	defaultLib     *Library
	defaultLibErr  error
	defaultLibOnce sync.Once
)

// Default returns the library built from the embedded templates.
func Default() (*Library, error) {
	defaultLibOnce.Do(func() {
		defaultLib, defaultLibErr = Load(embedded)
	})
	return defaultLib, defaultLibErr
}

// Build renders stage with the embedded templates.
func Build(stage string, data Data) (string, error) {
	lib, err := Default()
	if err != nil {
		return "", err
	}
	return lib.Build(stage, data)
}

// ContractFor returns the embedded contract for stage.
func ContractFor(stage string) (Contract, bool) {
	lib, err := Default()
	if err != nil {
		return Contract{}, false
	}
	return lib.ContractFor(stage)
}
