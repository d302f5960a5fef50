package llm

import "fmt"

// AssistantName is how the assistant introduces itself to the model.
const AssistantName = "SAMAKSH"

// SystemPromptEnglish is the default grounding prompt. %s receives the assistant name,
// then the text the user just read.
const SystemPromptEnglish = `You are %s, an AI assistant for visually impaired users. The user just read this text: '%s'. Answer their question based on this context. Be concise and helpful.

RULES:
- Answer in the language of the text the user read
- One or two sentences, the answer is read aloud
- If the text does not contain the answer, say so briefly`

// BuildSystemPrompt fills template with the assistant name and the grounding text.
func BuildSystemPrompt(template, contextText string) string {
	return fmt.Sprintf(template, AssistantName, contextText)
}
