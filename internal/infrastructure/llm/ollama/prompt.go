package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const gradeSchemaInstruction = `Return strict JSON object with keys:
score (string "yes" or "no"), confidence (number from 0 to 1), reasoning (string).
No markdown, no extra keys.`

func buildQuestionGradePrompt(question string) string {
	return fmt.Sprintf(`You decide whether a user question can be answered from an indexed
collection of the user's own documents, or whether it clearly asks about the open world.
Score "yes" if the question plausibly targets uploaded document content.
Score "no" if it is general knowledge, current events, or otherwise out of domain.
%s

Question:
%s`, gradeSchemaInstruction, question)
}

func buildChunkGradePrompt(question string, chunk domain.RetrievedChunk) string {
	return fmt.Sprintf(`You judge whether one retrieved document passage is relevant to a question.
Score "yes" if the passage contains information that helps answer the question.
Score "no" if it is off-topic or lacks the needed facts.
%s

Question:
%s

Passage (file=%s):
%s`, gradeSchemaInstruction, question, chunk.Filename, chunk.Text)
}

func buildGroundednessPrompt(question, answer string, contexts []string) string {
	var ctxBuilder strings.Builder
	for idx, text := range contexts {
		ctxBuilder.WriteString(fmt.Sprintf("[%d] %s\n\n", idx+1, text))
	}
	if ctxBuilder.Len() == 0 {
		ctxBuilder.WriteString("(no context)\n")
	}

	return fmt.Sprintf(`You verify that a generated answer is supported by the supplied context.
Key facts and claims must be traceable to the context; fabricated or external
information means the answer is not grounded. Minor paraphrasing is acceptable.
Score "yes" only if the answer is well supported. Be strict.
%s

Question:
%s

Answer to verify:
%s

Context:
%s`, gradeSchemaInstruction, question, answer, ctxBuilder.String())
}

func buildDocumentAnswerPrompt(question string, chunks []domain.RetrievedChunk) string {
	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] file=%s score=%.3f\n%s\n\n",
			idx+1,
			chunk.Filename,
			chunk.Score,
			chunk.Text,
		))
	}

	return fmt.Sprintf(`Answer the user question only from the context below.
Base every claim on the context; if it is insufficient, say so directly.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}

func buildWebAnswerPrompt(question string, passages []domain.Passage) string {
	var contextBuilder strings.Builder
	for idx, passage := range passages {
		header := passage.Title
		if header == "" {
			header = passage.URL
		}
		contextBuilder.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", idx+1, header, passage.Content))
	}
	if contextBuilder.Len() == 0 {
		contextBuilder.WriteString("(no search results)\n")
	}

	return fmt.Sprintf(`Answer the user question from the web search results below.
If the results are insufficient, say so directly instead of guessing.

Question:
%s

Search results:
%s
`, question, contextBuilder.String())
}
