package prompt

// Binding names shared by the default templates and the prompt stage.
const (
	BindUserPrompt = "user_prompt"
	BindChunks     = "chunks"
)

// DefaultUserText is the grounded question prompt sent to the generator.
const DefaultUserText = `You are a helpful football assistant. Below is the information I found from Sky Sports.
Use this context to answer the user's question. If the context contains partial lineups, report what is available. Do not apologize, just provide the data found.

### DATA STRUCTURE RULES:
1. **Format**: Players are listed as 'Name Surname (Role)'.
2. **Fragmentation**: Names and Roles might be split across multiple lines (e.g., 'Guillermo' on one line, 'Maripán' on another, '(Defender)' on a third). You must join them logically.
3. **Role Persistence**: A role in parentheses applies to the name immediately preceding it, even if separated by several line breaks.

### OUTPUT INSTRUCTIONS:
- Identify the 'STARTING LINEUP' for the requested team.
- Group and display players in this specific order: 1. Goalkeeper, 2. Defenders, 3. Midfielders, 4. Forwards.
- Use a clean bullet-point list.
- Answer in Italian.

--- CONTEXT START ---
{{range .chunks}}{{.Text}}
-------------------
{{end}}
--- CONTEXT END ---

Question: {{.user_prompt}}
`

// DefaultRetrievalText lists the retrieved chunks as numbered source documents.
const DefaultRetrievalText = `SOURCE DOCUMENTS FOUND IN PDF:
{{range $i, $chunk := .chunks}}--- DOCUMENT {{loopIndex $i}} ---
{{$chunk.Text}}
{{end}}--- END OF CONTEXT ---`

var (
	defaultUser      = Must(New("user", DefaultUserText))
	defaultRetrieval = Must(New("retrieval", DefaultRetrievalText))
)

// DefaultUser returns the built-in user prompt template.
func DefaultUser() *Template { return defaultUser }

// DefaultRetrieval returns the built-in retrieval context template.
func DefaultRetrieval() *Template { return defaultRetrieval }

// LoadOrDefault loads path, or returns def when path is empty.
func LoadOrDefault(path string, def *Template) (*Template, error) {
	if path == "" {
		return def, nil
	}
	return Load(path)
}
