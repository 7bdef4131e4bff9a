// Package knowledge — статический справочник по разделам студии
// и готовым ответам.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDataset []byte

type Feature struct {
	Tab         string   `yaml:"tab"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Workflow    []string `yaml:"workflow"`
	Keywords    []string `yaml:"keywords"`
}

type Entry struct {
	Tab      string   `yaml:"tab"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

type dataset struct {
	Features []Feature `yaml:"features"`
	Entries  []Entry   `yaml:"entries"`
}

// Answer — лучший готовый ответ на запрос
type Answer struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Score  int    `json:"score"`
}

type Base struct {
	features map[string]Feature
	order    []string
	entries  []Entry
}

// Load читает YAML из path, при пустом path — встроенную заглушку
func Load(path string) (*Base, error) {
	if path == "" {
		return Parse(defaultDataset)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Base, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}

	b := &Base{features: make(map[string]Feature, len(ds.Features))}
	for _, f := range ds.Features {
		tab := normalize(f.Tab)
		if tab == "" {
			return nil, fmt.Errorf("feature %q has no tab", f.Title)
		}
		if _, dup := b.features[tab]; dup {
			return nil, fmt.Errorf("duplicate feature tab %q", tab)
		}
		f.Tab = tab
		b.features[tab] = f
		b.order = append(b.order, tab)
	}
	for _, e := range ds.Entries {
		if strings.TrimSpace(e.Answer) == "" {
			continue
		}
		e.Tab = normalize(e.Tab)
		b.entries = append(b.entries, e)
	}
	return b, nil
}

func (b *Base) Feature(tab string) (Feature, bool) {
	f, ok := b.features[normalize(tab)]
	return f, ok
}

// Search считает совпадения ключевых слов для записей и разделов.
// Текущая вкладка даёт +1. При равенстве порядок датасета, записи раньше разделов.
func (b *Base) Search(query, tab string) (Answer, bool) {
	q := normalize(query)
	if q == "" {
		return Answer{}, false
	}
	tab = normalize(tab)

	var best Answer
	consider := func(score int, entryTab, text, source string) {
		if score == 0 {
			return
		}
		if tab != "" && entryTab == tab {
			score++
		}
		if score > best.Score {
			best = Answer{Text: text, Source: source, Score: score}
		}
	}

	for i, e := range b.entries {
		consider(hits(q, e.Keywords), e.Tab, e.Answer, fmt.Sprintf("entry:%d", i))
	}
	for _, t := range b.order {
		f := b.features[t]
		consider(hits(q, f.Keywords), f.Tab, describe(f), "feature:"+f.Tab)
	}

	return best, best.Score > 0
}

func describe(f Feature) string {
	var sb strings.Builder
	sb.WriteString(f.Title)
	sb.WriteString(": ")
	sb.WriteString(f.Description)
	for i, step := range f.Workflow {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, step)
	}
	return sb.String()
}

func hits(query string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if k = normalize(k); k != "" && strings.Contains(query, k) {
			n++
		}
	}
	return n
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
