package ballots

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// choiceMatcher returns a raw candidate from text.
type choiceMatcher func(text string) (string, bool)

func submatch(re *regexp.Regexp) choiceMatcher {
	return func(text string) (string, bool) {
		sub := re.FindStringSubmatch(text)
		if sub == nil {
			return "", false
		}
		return sub[1], true
	}
}

// Most specific first.
var (
	matchEnglishBracket = submatch(regexp.MustCompile(`(?i)vote for \[(.*?)\]`))
	matchGreekBracket   = submatch(regexp.MustCompile(`(?i)ψηφίζω \[(.*?)\]`))
	matchGreekDelimited = submatch(regexp.MustCompile(`(?i)ψηφίζω[\s:]+([^.\n]+)`))
	matchGreekLoose     = submatch(regexp.MustCompile(`(?i)ψηφίζω (?:για |υπέρ )?(.+?)(?:\.|$)`))

	choiceMatchers = []choiceMatcher{
		matchEnglishBracket,
		matchGreekBracket,
		matchGreekDelimited,
		matchGreekLoose,
	}
)

// ExtractChoice returns the declared option. Candidates are trimmed; empty
// ones and ones longer than MaxChoiceLength code points fall through to the
// next matcher.
func ExtractChoice(text string) (string, bool) {
	for _, match := range choiceMatchers {
		raw, ok := match(text)
		if !ok {
			continue
		}
		if choice, ok := acceptableChoice(raw); ok {
			return choice, true
		}
	}
	return "", false
}

func acceptableChoice(raw string) (string, bool) {
	choice := strings.TrimSpace(raw)
	if choice == "" || utf8.RuneCountInString(choice) > MaxChoiceLength {
		return "", false
	}
	return choice, true
}
