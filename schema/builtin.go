package schema

// Builtins returns the default entity types.
func Builtins() []Shape {
	return []Shape{
		{
			Name:        "Requirement",
			Description: "A specific need, feature, or functionality that a product or service must fulfill.",
			Instructions: "Look for explicit statements of needs or necessities (\"We need X\", \"X is required\"). " +
				"Identify functional specifications that describe what the system should do. " +
				"Pay attention to non-functional requirements like performance or security.",
			Fields: []Field{
				{Name: "project_name", Description: "The name of the project to which the requirement belongs.", Required: true},
				{Name: "description", Description: "Description of the requirement.", Required: true},
			},
			WhenToUse: "When the content states something a project or system must do or satisfy.",
		},
		{
			Name:        "Preference",
			Description: "A person's expressed preference or preference pattern.",
			Instructions: "Look for preference expressions (\"I prefer\", \"I like\", \"always use\", \"never do\"). " +
				"Identify who has the preference by name or role, never a generic \"user\". " +
				"Only extract explicitly stated preferences.",
			Fields: []Field{
				{Name: "person", Description: "Person who has this preference (name or role)", Required: true},
				{Name: "category", Description: "Category: coding_style|tools|workflow|design|communication", Required: true},
				{Name: "preference", Description: "The specific preference", Required: true},
				{Name: "strength", Description: "Strength: strong|moderate|slight", Default: "moderate"},
			},
			WhenToUse: "When someone states a like, dislike or habitual choice.",
		},
		{
			Name:        "Procedure",
			Description: "A set of actions to be taken in a specific order or under certain circumstances.",
			Instructions: "Look for sequential instructions or steps (\"First do X, then do Y\"). " +
				"Identify conditional actions (\"If X happens, do Y\") and capture the complete procedure.",
			Fields: []Field{
				{Name: "description", Description: "Brief description of the procedure.", Required: true},
			},
			WhenToUse: "When the content describes how something is done step by step.",
		},
	}
}
