// Package prompt composes the instruction sent to the text-generation
// service. Output depends only on the arguments.
package prompt

import (
	"strings"

	"docextract/internal/domain"
)

// Preamble is the fixed role statement that opens every prompt.
const Preamble = `Você é um assistente especializado em extrair informações importantes de documentos.`

// Directive is the fixed output-format instruction that closes every prompt.
const Directive = `Sua resposta deve seguir o padrão de um campo por linha, com cada linha contendo o nome do campo ou item seguido por um "=" e o valor do campo ou item.
Use uma linha em branco para separar registros lógicos distintos (por exemplo, cada item de uma lista).
Respond one field per line, each line formatted as ` + "`<field name> = <value>`" + `; a blank line separates distinct logical records.
Do not add any other text, headings, numbering, or markdown.`

// Build returns the prompt for a document of the given type. documentType
// must be non-empty; callers validate it before the pipeline runs.
func Build(rawText, serializedTables, documentType string) domain.Prompt {
	var b strings.Builder
	b.WriteString(Preamble)
	b.WriteString("\nO usuário enviou um documento do tipo: ")
	b.WriteString(documentType)
	b.WriteString(".\nAbaixo está o texto bruto e as tabelas extraídas do documento:\n\n")

	b.WriteString("Texto bruto:\n")
	b.WriteString(rawText)
	b.WriteString("\n\nTabelas:\n")
	b.WriteString(serializedTables)

	b.WriteString("\n\nIdentifique e retorne os campos mais importantes para um documento do tipo ")
	b.WriteString(documentType)
	b.WriteString(".\n")
	b.WriteString(Directive)
	b.WriteString("\n")

	return domain.Prompt{DocumentType: documentType, Body: b.String()}
}
