package prompt

import (
	"fmt"

	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
// The product is Spanish-facing, so the prompt and the JSON keys are Spanish.
func GetSystemPrompt() string {
	return `Eres un analista de software experto. Tu tarea es analizar especificaciones de software y proponer una estructura de procesos, subprocesos y casos de uso.

IMPORTANTE: Debes responder ÚNICAMENTE con un objeto JSON válido, sin texto adicional antes o después. El formato debe ser:

{
  "procesos": [
    {
      "nombre": "Nombre del proceso",
      "descripcion": "Descripción detallada",
      "subprocesos": [
        {
          "nombre": "Nombre del subproceso",
          "descripcion": "Descripción del subproceso",
          "casos_uso": [
            {
              "nombre": "Nombre del caso de uso",
              "descripcion": "Descripción completa",
              "actor_principal": "Usuario/Sistema",
              "tipo_caso_uso": 1,
              "precondiciones": "Qué debe existir antes",
              "postcondiciones": "Qué existe después",
              "criterios_de_aceptacion": "Cómo validar el éxito"
            }
          ]
        }
      ]
    }
  ]
}

Notas sobre tipo_caso_uso:
- 1 = Funcional (interacción directa del usuario)
- 2 = No Funcional (rendimiento, seguridad, etc.)
- 3 = Sistema (procesos automáticos)

Genera entre 2-4 procesos principales, cada uno con 2-3 subprocesos, y cada subproceso con 2-4 casos de uso relevantes.`
}

// GetUserPrompt embeds the raw specification.
func GetUserPrompt(specification string) string {
	return fmt.Sprintf("Analiza la siguiente especificación de software y genera la estructura de procesos:\n\n%s", specification)
}

// Messages builds the fixed system+user pair sent to every candidate model.
func Messages(specification string) []domai.Message {
	return []domai.Message{
		{Role: domai.RoleSystem, Content: GetSystemPrompt()},
		{Role: domai.RoleUser, Content: GetUserPrompt(specification)},
	}
}
