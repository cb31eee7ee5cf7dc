package worker

import "github.com/shayc/atelier/pkg/models"

// excerptFields maps each role to the payload fields worth remembering, in
// preference order, and the memory kind the excerpt is filed under.
var excerptFields = map[models.Role]struct {
	fields []string
	kind   models.MemoryKind
}{
	models.RoleWriter:     {fields: []string{"lore", "summary"}, kind: models.MemoryKindLore},
	models.RoleDesigner:   {fields: []string{"style_notes", "palette", "summary"}, kind: models.MemoryKindStyle},
	models.RoleComposer:   {fields: []string{"motif", "theme", "summary"}, kind: models.MemoryKindStyle},
	models.RoleResearcher: {fields: []string{"facts", "summary"}, kind: models.MemoryKindLore},
	models.RoleEditor:     {fields: []string{"conventions", "summary"}, kind: models.MemoryKindPattern},
}

// extractMemorable pulls the excerpt worth remembering from a payload.
// Unknown roles fall back to the summary field filed as history.
func extractMemorable(role models.Role, payload map[string]any) (string, models.MemoryKind) {
	rule, ok := excerptFields[role]
	if !ok {
		rule.fields = []string{"summary"}
		rule.kind = models.MemoryKindHistory
	}

	for _, field := range rule.fields {
		if s, ok := payload[field].(string); ok && s != "" {
			return s, rule.kind
		}
	}
	return "", rule.kind
}
