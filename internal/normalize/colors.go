package normalize

// DefaultLanguageColor is used for languages missing from languageColors.
const DefaultLanguageColor = "#8b949e"

var languageColors = map[string]string{
	"Astro":            "#ff5a03",
	"Bash":             "#89e051",
	"C":                "#555555",
	"C#":               "#178600",
	"C++":              "#f34b7d",
	"CSS":              "#563d7c",
	"Dart":             "#00b4ab",
	"Docker":           "#384d54",
	"Elixir":           "#6e4a7e",
	"Go":               "#00add8",
	"GraphQL":          "#e10098",
	"HTML":             "#e34c26",
	"Java":             "#b07219",
	"JavaScript":       "#f1e05a",
	"JSON":             "#292929",
	"JSX":              "#f1e05a",
	"Kotlin":           "#a97bff",
	"Lua":              "#000080",
	"Markdown":         "#083fa1",
	"PHP":              "#4f5d95",
	"Prisma":           "#0c344b",
	"Python":           "#3572a5",
	"Ruby":             "#701516",
	"Rust":             "#dea584",
	"SCSS":             "#c6538c",
	"Shell":            "#89e051",
	"SQL":              "#e38c00",
	"Svelte":           "#ff3e00",
	"Swift":            "#f05138",
	"TOML":             "#9c4221",
	"TSX":              "#3178c6",
	"TypeScript":       "#3178c6",
	"Vue.js":           "#41b883",
	"YAML":             "#cb171e",
	"Zig":              "#ec915c",
	"Other":            DefaultLanguageColor,
	"Text":             "#cccccc",
	"Git Config":       "#f44d27",
	"Makefile":         "#427819",
	"Java Properties":  "#2a6277",
	"Jupyter Notebook": "#da5b0b",
}

// LanguageColor returns the display color for a language name.
func LanguageColor(name string) string {
	if c, ok := languageColors[name]; ok {
		return c
	}
	return DefaultLanguageColor
}
