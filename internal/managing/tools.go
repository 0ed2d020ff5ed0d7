package managing

import "go-litresearch/internal/llm"

// toolSpecs are the three tools the Managing Agent's reasoning model is
// offered (§4.6). Grounded on architectures/think_deep/runtime/tools.go's
// tool-registry pattern, adapted to a fixed three-tool set rather than a
// dynamic registry.
var toolSpecs = []llm.ToolSpec{
	{
		Name: "cluster_papers",
		Description: "Deterministically group this branch's accumulated papers by a " +
			"fixed criterion and return the groups as JSON.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"criterion": map[string]interface{}{
					"type": "string",
					"enum": []string{"topic", "methodology", "time_period", "application", "citation_network"},
				},
			},
			"required": []string{"criterion"},
		},
	},
	{
		Name:        "get_branch_context",
		Description: "Return this branch's current snapshot and, optionally, sibling branch summaries.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"include_siblings": map[string]interface{}{"type": "boolean"},
			},
		},
	},
	{
		Name:        "make_branch_decision",
		Description: "Terminal tool. Decide whether this branch should continue, split, or wrap up.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"action":    map[string]interface{}{"type": "string", "enum": []string{"continue", "split", "wrap_up"}},
				"reasoning": map[string]interface{}{"type": "string"},
				"split_config": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"num_branches": map[string]interface{}{"type": "integer"},
						"criteria":     map[string]interface{}{"type": "string"},
						"branches": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"label": map[string]interface{}{"type": "string"},
									"query": map[string]interface{}{"type": "string"},
									"focus": map[string]interface{}{"type": "string"},
									"paper_ids": map[string]interface{}{
										"type":  "array",
										"items": map[string]interface{}{"type": "string"},
									},
								},
							},
						},
					},
				},
			},
			"required": []string{"action", "reasoning"},
		},
	},
}
