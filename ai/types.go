package ai

// EntityTypes defines the valid categories for extracted entities.
// The organization type is accepted from extraction services and folded
// into concept by core.ParseEntityType.
var EntityTypes = []string{
	"person",
	"project",
	"technology",
	"concept",
	"organization",
}
