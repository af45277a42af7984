package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"github.com/dhakalaashish/pr-guidebook/internal/prompt"
)

var stageOrder = map[string][]string{
	guidebook.PhaseGettingStarted: {
		guidebook.StageDuplicates,
		guidebook.StageClassify,
		guidebook.StageUniqueness,
		guidebook.StageAlignment,
		guidebook.StageScope,
		guidebook.StageGuidelines,
		guidebook.StageChecklist,
	},
	guidebook.PhaseImplementation: {
		guidebook.StageSteps,
		guidebook.StageTests,
	},
	guidebook.PhaseReview: {
		guidebook.StageResolution,
		guidebook.StageEnforcement,
		guidebook.StageDescription,
		guidebook.StageTestPresence,
	},
}

func writePhase(w io.Writer, phase string, out guidebook.Phase, format string) error {
	if format == "json" {
		return writeJSON(w, out)
	}
	if format != "" && format != "text" {
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
	for i, stage := range orderedStages(phase, out) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeResult(w, out[stage])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// orderedStages lists the known stages of phase first, then anything else
// sorted by name.
func orderedStages(phase string, out guidebook.Phase) []string {
	seen := map[string]bool{}
	var stages []string
	for _, s := range stageOrder[phase] {
		if _, ok := out[s]; ok {
			stages = append(stages, s)
			seen[s] = true
		}
	}
	var rest []string
	for s := range out {
		if !seen[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(stages, rest...)
}

func writeResult(w io.Writer, r guidebook.Result) {
	fmt.Fprintf(w, "%s (%s)\n", r.Stage, r.Status)
	if r.Failed() {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
		return
	}
	switch r.Kind {
	case guidebook.KindList:
		for i, item := range r.Items {
			fmt.Fprintf(w, "  %d. %s\n", i+1, item)
		}
	case guidebook.KindFields:
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeField(w, k, r.Fields[k])
		}
	case guidebook.KindSections:
		for _, h := range sectionOrder(r) {
			fmt.Fprintf(w, "  %s\n", h)
			writeIndented(w, r.Sections[h], "    ")
		}
	case guidebook.KindRecords:
		if len(r.Records) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, d := range r.Records {
			fmt.Fprintf(w, "  - [%s] %s %s\n", d.Status, d.Title, d.URL)
		}
	default:
		writeIndented(w, r.Text, "  ")
	}
}

func writeField(w io.Writer, key string, v any) {
	switch val := v.(type) {
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			fmt.Fprintf(w, "  %s:\n", key)
			return
		}
		if strings.Contains(val, "\n") {
			fmt.Fprintf(w, "  %s:\n", key)
			writeIndented(w, val, "    ")
			return
		}
		fmt.Fprintf(w, "  %s: %s\n", key, val)
	case []guidebook.PRChoice:
		fmt.Fprintf(w, "  %s:\n", key)
		for i, p := range val {
			fmt.Fprintf(w, "    %d. %s\n", i+1, p.Title)
			writeIndented(w, p.Description, "       ")
		}
	default:
		data, _ := json.Marshal(val)
		fmt.Fprintf(w, "  %s: %s\n", key, data)
	}
}

func writeIndented(w io.Writer, text, indent string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
}

func sectionOrder(r guidebook.Result) []string {
	var order []string
	if c, ok := prompt.ContractFor(r.Stage); ok {
		for _, h := range c.Headings {
			if _, present := r.Sections[h]; present {
				order = append(order, h)
			}
		}
	}
	if len(order) == len(r.Sections) {
		return order
	}
	order = order[:0]
	for h := range r.Sections {
		order = append(order, h)
	}
	sort.Strings(order)
	return order
}
