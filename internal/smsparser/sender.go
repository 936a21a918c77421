package smsparser

import "strings"

// IsFinancialSender reports whether an SMS sender ID looks like a bank or
// payment institution. It is deliberately permissive: a false positive only
// costs a parse attempt that fails on the amount step, while a false
// negative loses a transaction.
func IsFinancialSender(sender string) bool {
	upper := strings.ToUpper(sender)

	for _, code := range bankSenders {
		if strings.Contains(upper, code) {
			return true
		}
	}

	if strings.Contains(upper, "BANK") {
		return true
	}

	return senderCodePattern.MatchString(upper)
}
