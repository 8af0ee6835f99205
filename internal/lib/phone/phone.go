// Package phone нормализует номера телефонов для отправки в WhatsApp.
package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode код страны, добавляемый к номерам без него.
const DefaultCountryCode = "55"

var nonDigits = regexp.MustCompile(`\D`)

// Sanitize удаляет из номера все нецифровые символы.
func Sanitize(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// Normalize приводит номер к виду "<код страны><номер>" только из цифр.
// Номер, уже начинающийся с кода страны, повторно не дополняется.
func Normalize(phone, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := Sanitize(phone)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, countryCode) {
		return digits
	}
	return countryCode + digits
}

// Mask скрывает все цифры номера, кроме последних четырёх. Используется в логах.
func Mask(phone string) string {
	clean := Sanitize(phone)
	if len(clean) <= 4 {
		return clean
	}
	return strings.Repeat("*", len(clean)-4) + clean[len(clean)-4:]
}
