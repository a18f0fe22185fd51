package ports

// TemplateEngine renders manifest templates before parsing.
type TemplateEngine interface {
	// Render processes the raw manifest bytes with the provided values.
	// Returns resolved bytes with all template placeholders replaced.
	Render(raw []byte, values map[string]any) ([]byte, error)
}
