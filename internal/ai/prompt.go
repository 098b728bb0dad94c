package ai

import "fmt"

// TranslatePrompt builds the instruction for a translation request. The
// model is told to emit the translated text and nothing else, since the
// output streams straight into a display window.
func TranslatePrompt(text, sourceLanguage, targetLanguage string) string {
	if sourceLanguage == "" || sourceLanguage == "auto" {
		return fmt.Sprintf(
			"Translate the following text into %s. Output only the translated text, nothing else.\n\n%s",
			targetLanguage, text)
	}
	return fmt.Sprintf(
		"Translate the following text from %s into %s. Output only the translated text, nothing else.\n\n%s",
		sourceLanguage, targetLanguage, text)
}

// ExplainPrompt builds the instruction for an explanation request, bounded
// so the result fits a small display window.
func ExplainPrompt(text, targetLanguage string) string {
	return fmt.Sprintf(
		"Explain the following text in %s, in no more than 200 words.\n\n%s",
		targetLanguage, text)
}
