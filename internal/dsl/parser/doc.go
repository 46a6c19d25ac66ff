package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
)

// Category classifies what part of the DSL a documented parser
// handles (spec.md §4.6). Grounded on original_source/kairei-core/src/
// analyzer/doc_parser.rs's ParserCategory enum.
type Category string

const (
	CategoryExpression Category = "Expression"
	CategoryStatement  Category = "Statement"
	CategoryHandler    Category = "Handler"
	CategoryType       Category = "Type"
	CategoryDefinition Category = "Definition"
	CategoryOther      Category = "Other"
)

// Documentation is the metadata a parser attaches to itself so the
// DSL's documentation can be generated straight from the grammar
// implementation rather than hand-maintained separately.
type Documentation struct {
	Name        string
	Description string
	Category    Category
	Examples    []string
	Deprecated  string // empty if not deprecated
	Related     []string
}

// DocParser wraps any Parser[I,O] with Documentation without changing
// its parsing behavior, mirroring doc_parser.rs's DocParser<P,I,O>.
type DocParser[I, O any] struct {
	Parser Parser[I, O]
	Doc    Documentation
}

// Parse delegates to the wrapped parser.
func (d DocParser[I, O]) Parse(input []I, pos int) (int, O, error) {
	return d.Parser(input, pos)
}

// Collection organizes documentation entries by category and by name
// (doc_parser.rs's DocumentationCollection).
type Collection struct {
	byCategory map[Category][]Documentation
	byName     map[string]Documentation
}

// NewCollection creates an empty Collection.
func NewCollection() *Collection {
	return &Collection{byCategory: map[Category][]Documentation{}, byName: map[string]Documentation{}}
}

// Add registers doc, indexed by both category and name.
func (c *Collection) Add(doc Documentation) {
	c.byCategory[doc.Category] = append(c.byCategory[doc.Category], doc)
	c.byName[doc.Name] = doc
}

// ByCategory returns every entry registered under category.
func (c *Collection) ByCategory(category Category) []Documentation {
	return c.byCategory[category]
}

// ByName looks up a single entry by its parser name.
func (c *Collection) ByName(name string) (Documentation, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Categories returns every category that has at least one entry.
func (c *Collection) Categories() []Category {
	out := make([]Category, 0, len(c.byCategory))
	for cat := range c.byCategory {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns the number of registered entries.
func (c *Collection) Count() int { return len(c.byName) }

// Validate reports documentation defects: empty descriptions, missing
// examples, and related-parser references that don't resolve.
func (c *Collection) Validate() []string {
	var issues []string
	for name, doc := range c.byName {
		if doc.Description == "" {
			issues = append(issues, fmt.Sprintf("parser %q has an empty description", name))
		}
		if len(doc.Examples) == 0 {
			issues = append(issues, fmt.Sprintf("parser %q has no examples", name))
		}
	}
	for name, doc := range c.byName {
		for _, related := range doc.Related {
			if _, ok := c.byName[related]; !ok {
				issues = append(issues, fmt.Sprintf("parser %q references non-existent related parser %q", name, related))
			}
		}
	}
	sort.Strings(issues)
	return issues
}

// ExportMarkdown renders the collection as a Markdown document:
// a table of contents followed by one section per category, parsers
// sorted alphabetically within each (doc_parser.rs's export_markdown).
func (c *Collection) ExportMarkdown() string {
	var b strings.Builder
	b.WriteString("# KAIREI Language Documentation\n\n")
	b.WriteString("## Table of Contents\n\n")

	categories := c.Categories()
	for _, cat := range categories {
		b.WriteString(fmt.Sprintf("- [%s](#%s)\n", cat, strings.ToLower(string(cat))))
	}
	b.WriteString("\n")

	for _, cat := range categories {
		b.WriteString(fmt.Sprintf("## %s\n\n", cat))
		docs := append([]Documentation(nil), c.byCategory[cat]...)
		sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

		for _, doc := range docs {
			b.WriteString(fmt.Sprintf("### %s\n\n", doc.Name))
			b.WriteString(doc.Description + "\n\n")

			if len(doc.Examples) > 0 {
				b.WriteString("**Examples**:\n\n")
				for _, ex := range doc.Examples {
					b.WriteString(fmt.Sprintf("```\n%s\n```\n\n", ex))
				}
			}
			if len(doc.Related) > 0 {
				b.WriteString("**Related**:\n\n")
				for _, rel := range doc.Related {
					if _, ok := c.byName[rel]; ok {
						b.WriteString(fmt.Sprintf("- [%s](#%s)\n", rel, rel))
					} else {
						b.WriteString(fmt.Sprintf("- %s (undefined)\n", rel))
					}
				}
				b.WriteString("\n")
			}
			if doc.Deprecated != "" {
				b.WriteString(fmt.Sprintf("**Deprecated**: %s\n\n", doc.Deprecated))
			}
		}
	}
	return b.String()
}

// ExportHTML renders the same Markdown output to HTML via goldmark.
func (c *Collection) ExportHTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(c.ExportMarkdown()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// docJSON is the stable wire shape for ExportJSON, independent of the
// unexported map layout of Collection.
type docJSON struct {
	Entries []Documentation `json:"entries"`
}

// ExportJSON renders every entry as structured JSON.
func (c *Collection) ExportJSON() ([]byte, error) {
	entries := make([]Documentation, 0, len(c.byName))
	for _, doc := range c.byName {
		entries = append(entries, doc)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return json.MarshalIndent(docJSON{Entries: entries}, "", "  ")
}

// Provider is implemented by anything that can contribute documented
// parsers to a Collector (doc_parser.rs's DocumentationProvider).
type Provider interface {
	ProvideDocumentation() []Documentation
}

// Collector aggregates documentation from registered providers into a
// single Collection.
type Collector struct {
	providers []Provider
	collection *Collection
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{collection: NewCollection()}
}

// Register adds a documentation provider to be consulted on Collect.
func (c *Collector) Register(p Provider) { c.providers = append(c.providers, p) }

// Collect gathers documentation from every registered provider.
func (c *Collector) Collect() {
	for _, p := range c.providers {
		for _, doc := range p.ProvideDocumentation() {
			c.collection.Add(doc)
		}
	}
}

// Collection returns the aggregated documentation.
func (c *Collector) Collection() *Collection { return c.collection }
