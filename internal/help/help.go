// Package help serves inline guidance for screens and fields of the admin UI.
//
// Lookups never fail. When nothing specific is known the answer becomes more
// general: exact element, the context's general entry, a generated entry based
// on the context's shape, then a generic message.
package help

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// GeneralElement is the element key used when no element is given
const GeneralElement = "general"

// Response is the help shown for one UI element
type Response struct {
	Context         string   `json:"context"`
	Element         string   `json:"element"`
	Explanation     string   `json:"explanation"`
	Tips            []string `json:"tips"`
	RelatedFeatures []string `json:"related_features"`
	Source          string   `json:"source"` // exact, general, generated, fallback
}

type entry struct {
	Explanation string   `yaml:"explanation"`
	Tips        []string `yaml:"tips"`
	Related     []string `yaml:"related"`
}

//go:embed knowledge.yaml
var knowledgeYAML []byte

// knowledge is loaded once and never written afterwards
var knowledge = mustLoad(knowledgeYAML)

func mustLoad(raw []byte) map[string]map[string]entry {
	kb, err := load(raw)
	if err != nil {
		panic(fmt.Sprintf("help: parse knowledge base: %v", err))
	}
	return kb
}

func load(raw []byte) (map[string]map[string]entry, error) {
	kb := map[string]map[string]entry{}
	if err := yaml.Unmarshal(raw, &kb); err != nil {
		return nil, err
	}
	return kb, nil
}

// Contexts lists the contexts with authored help
func Contexts() []string {
	out := make([]string, 0, len(knowledge))
	for c := range knowledge {
		out = append(out, c)
	}
	return out
}

// GetHelp returns guidance for element within context. element may be empty.
func GetHelp(context, element string) Response {
	context = strings.TrimSpace(context)
	element = strings.TrimSpace(element)
	if element == "" {
		element = GeneralElement
	}

	if elems, ok := knowledge[strings.ToLower(context)]; ok {
		if e, ok := elems[strings.ToLower(element)]; ok {
			return e.response(context, element, "exact")
		}
		if e, ok := elems[GeneralElement]; ok {
			return e.response(context, element, "general")
		}
	}

	if main, sub, ok := splitContext(context); ok {
		if gen, ok := generators[strings.ToLower(main)]; ok {
			r := gen(humanize(sub), element)
			r.Context, r.Element, r.Source = context, element, "generated"
			return r
		}
	}
	return fallback(context, element)
}

func (e entry) response(context, element, source string) Response {
	return Response{
		Context:         context,
		Element:         element,
		Explanation:     e.Explanation,
		Tips:            append([]string{}, e.Tips...),
		RelatedFeatures: append([]string{}, e.Related...),
		Source:          source,
	}
}

// splitContext cuts context at its first separator
func splitContext(context string) (string, string, bool) {
	i := strings.IndexAny(context, "-./:")
	if i <= 0 || i == len(context)-1 {
		return "", "", false
	}
	return context[:i], context[i+1:], true
}

func humanize(s string) string {
	return strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ", ".", " ", "/", " ", ":", " ").Replace(s))
}

func fallback(context, element string) Response {
	explanation := fmt.Sprintf("No specific help is available for %q yet.", context)
	if element != GeneralElement {
		explanation = fmt.Sprintf("No specific help is available for %q on %q yet.", element, context)
	}
	return Response{
		Context:     context,
		Element:     element,
		Explanation: explanation,
		Tips: []string{
			"Hover over a field label to see what it expects.",
			"Ask an administrator if you need access to a feature.",
		},
		RelatedFeatures: []string{"dashboard"},
		Source:          "fallback",
	}
}
