package model

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatAmount форматирует сумму с префиксом валюты и группировкой разрядов.
func FormatAmount(currency string, amount Amount) string {
	return currency + amountPrinter.Sprintf("%d", int64(amount))
}
