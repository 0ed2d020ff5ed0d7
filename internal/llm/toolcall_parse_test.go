package llm

import "testing"

func TestParseToolCallsFromText(t *testing.T) {
	content := `Let's cluster these papers.
<tool name="cluster_papers">{"paper_ids": ["p1", "p2"], "num_clusters": 2}</tool>
Done.`

	calls := ParseToolCallsFromText(content)
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].Name != "cluster_papers" {
		t.Fatalf("expected cluster_papers, got %s", calls[0].Name)
	}
	ids, ok := calls[0].Input["paper_ids"].([]interface{})
	if !ok || len(ids) != 2 {
		t.Fatalf("expected paper_ids with 2 entries, got %v", calls[0].Input["paper_ids"])
	}
}

func TestParseToolCallsFromText_MalformedJSONSkipped(t *testing.T) {
	content := `<tool name="bad">{not json}</tool>`
	if calls := ParseToolCallsFromText(content); len(calls) != 0 {
		t.Fatalf("expected 0 calls for malformed JSON, got %d", len(calls))
	}
}

func TestMergeToolCalls_PrefersStructured(t *testing.T) {
	structured := []ToolCall{{Name: "make_branch_decision"}}
	content := `<tool name="cluster_papers">{}</tool>`
	got := MergeToolCalls(structured, content)
	if len(got) != 1 || got[0].Name != "make_branch_decision" {
		t.Fatalf("expected structured calls to win, got %v", got)
	}
}

func TestMergeToolCalls_FallsBackToText(t *testing.T) {
	content := `<tool name="get_branch_context">{"branch_id": "b1"}</tool>`
	got := MergeToolCalls(nil, content)
	if len(got) != 1 || got[0].Name != "get_branch_context" {
		t.Fatalf("expected fallback parse, got %v", got)
	}
}
