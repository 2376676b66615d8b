package newsroom

import "strings"

// BadWords are the words comments must not contain.
var BadWords = [...]string{"редиска", "негодяй"}

// Warning is the error attached to a comment text containing one of BadWords.
const Warning = "Не ругайтесь!"

// containsBadWords reports whether text contains any of BadWords, ignoring case.
func containsBadWords(text string) bool {
	text = strings.ToLower(text)
	for i := range BadWords {
		if strings.Contains(text, BadWords[i]) {
			return true
		}
	}
	return false
}
