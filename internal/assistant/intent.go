package assistant

import "strings"

// sceneKeywords are matched as plain substrings of the lower-cased question, so
// "see" also matches "seen" and "seems".
var sceneKeywords = []string{"describe", "scene", "see", "what is", "क्या है", "room", "around"}

// IsSceneIntent reports whether question asks about the surroundings rather than the
// text that was read.
func IsSceneIntent(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range sceneKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
