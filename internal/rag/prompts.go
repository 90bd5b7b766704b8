package rag

import "fmt"

// qaPrompt builds the question-answering prompt: answer only from the given
// context, mirroring the language of the question.
func qaPrompt(context, query string) string {
	return fmt.Sprintf(`You are a professional document Q&A assistant. Answer the user's question based on the following document context.

## Document Context:
%s

## User Question:
%s

## Instructions:
1. Answer based ONLY on the provided document context
2. If the context doesn't contain relevant information, clearly state that
3. Use clear structure and formatting (markdown supported)
4. Be accurate and complete
5. **IMPORTANT: Language Preference**
   - Detect the language of the user's question
   - Detect the primary language of the document context
   - Respond in the SAME language as the user's question, OR if the document context is primarily in a different language, use that language
   - Priority: User's question language > Document context language > Chinese (Simplified Chinese) as default
   - If the language cannot be determined, use Chinese (Simplified Chinese) as the default language
   - Maintain consistency: if you start in Chinese, continue in Chinese; if you start in English, continue in English

Answer:`, context, query)
}

// summaryPrompt builds the summarization prompt, mirroring the document's
// dominant language.
func summaryPrompt(context string) string {
	return fmt.Sprintf(`Please generate a detailed summary of the following document content.

## Document Content:
%s

## Summary Requirements:
1. Main content and theme
2. Key points and important information
3. Important conclusions or recommendations
4. Other noteworthy content

## Language Instructions:
- Detect the primary language of the document content
- Generate the summary in the SAME language as the document content
- If the document is in Chinese, respond in Chinese (Simplified Chinese)
- If the document is in English, respond in English
- If the document contains multiple languages, use the dominant language
- If the language cannot be determined, use Chinese (Simplified Chinese) as the default language
- Maintain consistency throughout the summary

Please provide a structured summary using markdown format (headings, lists, etc.):

Summary:`, context)
}
