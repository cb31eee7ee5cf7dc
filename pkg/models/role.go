package models

// Role identifies a class of worker able to execute certain task types.
type Role string

const (
	// RoleWriter produces prose: chapters, scene descriptions, dialogue.
	RoleWriter Role = "writer"
	// RoleDesigner produces visual direction: palettes, composition notes.
	RoleDesigner Role = "designer"
	// RoleComposer produces audio direction: themes, motifs, cue sheets.
	RoleComposer Role = "composer"
	// RoleResearcher produces background material and fact sheets.
	RoleResearcher Role = "researcher"
	// RoleEditor reviews and tightens output from other roles.
	RoleEditor Role = "editor"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleWriter, RoleDesigner, RoleComposer, RoleResearcher, RoleEditor:
		return true
	default:
		return false
	}
}
