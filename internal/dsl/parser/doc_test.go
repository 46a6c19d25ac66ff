package parser

import (
	"strings"
	"testing"
)

func TestCollectionValidateFlagsMissingFields(t *testing.T) {
	c := NewCollection()
	c.Add(Documentation{Name: "parse_if", Category: CategoryStatement})
	issues := c.Validate()
	if len(issues) < 2 {
		t.Fatalf("expected at least 2 issues (empty description, no examples), got %v", issues)
	}
}

func TestCollectionValidateFlagsDanglingRelated(t *testing.T) {
	c := NewCollection()
	c.Add(Documentation{
		Name:        "parse_if",
		Description: "parses an if statement",
		Category:    CategoryStatement,
		Examples:    []string{"if x { y }"},
		Related:     []string{"parse_block", "parse_nonexistent"},
	})
	c.Add(Documentation{
		Name:        "parse_block",
		Description: "parses a block",
		Category:    CategoryStatement,
		Examples:    []string{"{ x }"},
	})
	issues := c.Validate()
	found := false
	for _, issue := range issues {
		if strings.Contains(issue, "parse_nonexistent") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a dangling-related issue, got %v", issues)
	}
}

func TestCollectionExportMarkdownAndHTML(t *testing.T) {
	c := NewCollection()
	c.Add(Documentation{
		Name:        "parse_if",
		Description: "parses an if statement",
		Category:    CategoryStatement,
		Examples:    []string{"if x { y }"},
	})
	md := c.ExportMarkdown()
	if !strings.Contains(md, "## Statement") || !strings.Contains(md, "### parse_if") {
		t.Fatalf("unexpected markdown output: %s", md)
	}
	html, err := c.ExportHTML()
	if err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	if !strings.Contains(html, "parse_if") {
		t.Errorf("expected html to contain parse_if, got %s", html)
	}
}

func TestCollectionExportJSON(t *testing.T) {
	c := NewCollection()
	c.Add(Documentation{Name: "parse_if", Description: "d", Category: CategoryStatement, Examples: []string{"x"}})
	data, err := c.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if !strings.Contains(string(data), "parse_if") {
		t.Errorf("expected json to contain parse_if, got %s", data)
	}
}

type stubProvider struct{ docs []Documentation }

func (s stubProvider) ProvideDocumentation() []Documentation { return s.docs }

func TestCollectorAggregatesProviders(t *testing.T) {
	collector := NewCollector()
	collector.Register(stubProvider{docs: []Documentation{
		{Name: "parse_if", Description: "d", Category: CategoryStatement, Examples: []string{"x"}},
	}})
	collector.Collect()
	if collector.Collection().Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", collector.Collection().Count())
	}
}
