package graph_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/messagemind/automaton/internal/presentation/graph"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/dsl"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		build    func(b *dsl.Builder)
		contains []string
	}{
		{
			name: "Start And End Shape",
			build: func(b *dsl.Builder) {
				b.Start("start").Then("end")
				b.End("end")
			},
			contains: []string{
				`start(("start"))`,
				`end_(("end"))`,
				"start --> end_",
			},
		},
		{
			name: "Action Shows Message",
			build: func(b *dsl.Builder) {
				b.Action("welcome", `Say "hi"`)
			},
			contains: []string{
				`welcome["welcome <br/> Say 'hi'"]`,
			},
		},
		{
			name: "Delay Shape",
			build: func(b *dsl.Builder) {
				b.Delay("wait", dsl.After(2, domain.UnitHours))
			},
			contains: []string{
				`wait[/"wait <br/> ⏱️ 2 hours"/]`,
			},
		},
		{
			name: "Condition Rules And Handles",
			build: func(b *dsl.Builder) {
				b.Condition("vip", dsl.Email(domain.OpEndsWith, "@vip.com"), dsl.Or(domain.OpIncludes, "gold")).
					True("gift").False("end")
			},
			contains: []string{
				`vip{"vip <br/> Email ends_with @vip.com OR Email includes gold"}`,
				`vip -- "true" --> gift`,
				`vip -- "false" --> end_`,
			},
		},
		{
			name: "ID Sanitization",
			build: func(b *dsl.Builder) {
				b.Add("path/to/file.md", domain.NodeTypeEnd)
				b.Add("hyphen-ated", domain.NodeTypeEnd)
			},
			contains: []string{
				`path_to_file_md(("path/to/file.md"))`,
				`hyphen_ated(("hyphen-ated"))`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dsl.New("g")
			tt.build(b)
			got := graph.GenerateMermaid(b.Graph(), nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	b := dsl.New("g")
	b.Start("start").Then("a")
	b.Action("a", "hi")
	g := b.Graph()

	report := &domain.Report{
		Traversals: []domain.TraversalResult{
			{EntryNodeID: "start", Visited: []string{"start", "a"}, Outcome: domain.OutcomeFailed, Err: errors.New("smtp down")},
		},
	}

	got := graph.GenerateMermaid(g, graph.OverlayFromReport(report))
	assert.Contains(t, got, "class start visited;")
	assert.Contains(t, got, "class a visited;")
	assert.Contains(t, got, "class a failed;")
}
