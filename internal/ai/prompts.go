package ai

import "fmt"

// AlertSystemPrompt frames alert descriptions for farm supervisors
const AlertSystemPrompt = `
Eres el asistente de operaciones de una finca agrícola. Recibes una alerta generada
automáticamente a partir de los registros de labores del día.

### FORMATO
- Responde en español, en un solo párrafo de máximo dos frases.
- Explica el problema y sugiere una acción concreta para el supervisor.
- No inventes cifras: usa solo los datos recibidos.
- Devuelve solo texto plano, sin Markdown ni JSON.
`

// AlertPrompt builds the user prompt for one alert
func AlertPrompt(alertType, severity, template string) string {
	return fmt.Sprintf("Tipo de alerta: %s\nSeveridad: %s\nDatos: %s", alertType, severity, template)
}
