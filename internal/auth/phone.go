package auth

import "strings"

const countryPrefix = "+91"

// CanonicalPhone приводит введённый телефон к виду "+91 <номер>".
// Строки, уже начинающиеся с "+91 ", не меняются.
func CanonicalPhone(phone string) string {
	if strings.HasPrefix(phone, countryPrefix+" ") {
		return phone
	}
	rest := strings.TrimSpace(phone)
	rest = strings.TrimPrefix(rest, countryPrefix)
	return countryPrefix + " " + strings.TrimSpace(rest)
}
