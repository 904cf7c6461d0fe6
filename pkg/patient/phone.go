package patient

import "regexp"

// phonePattern accepts an optional "+" and country-code prefix ("0" repeats
// or "91 ") followed by a 10 or 12 digit national number, or a split
// postal-style form of 5-6 digits plus 6 digits.
var phonePattern = regexp.MustCompile(`^((\+*)((0[ -]*)*|(91 )*)((\d{12})+|(\d{10})+)|\d{5,6}[- ]*\d{6})$`)

func ValidPhone(value string) bool {
	return phonePattern.MatchString(value)
}
