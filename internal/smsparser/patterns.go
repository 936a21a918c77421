package smsparser

import "regexp"

// Pattern and keyword tables for the extraction pipeline. Kept together as
// data so the heuristics can be reviewed and tested in one place.

// amountPatterns are tried in order; the first match wins. Group 1 captures
// the numeral including grouping commas.
var amountPatterns = []*regexp.Regexp{
	// currency marker before the number: Rs.1,234.56 / INR 500 / ₹99
	regexp.MustCompile(`(?i)(?:Rs\.?|INR|₹)\s*([\d,]+\.?\d*)`),
	// currency marker after the number: 1,234.56 Rs / 500 INR
	regexp.MustCompile(`(?i)([\d,]+\.?\d*)\s*(?:Rs\.?|INR|₹)`),
	// labelled form: amount: Rs.500 / Amt 1200
	regexp.MustCompile(`(?i)(?:amount|amt)[:\s]*(?:Rs\.?|INR|₹)?\s*([\d,]+\.?\d*)`),
}

// debitKeywords and creditKeywords score transaction direction. Each keyword
// counts once per message when contained anywhere, not per occurrence.
var debitKeywords = []string{
	"debited", "debit", "spent", "paid", "payment", "purchase",
	"withdrawn", "withdrawal", "transferred", "sent", "charged",
}

var creditKeywords = []string{
	"credited", "credit", "received", "deposited", "deposit",
	"refund", "cashback", "reversed",
}

// merchantPatterns are tried in order; group 1 captures the candidate name.
var merchantPatterns = []*regexp.Regexp{
	// preposition marker: "at AMAZON on", "to VPA merchant@upi ref"
	regexp.MustCompile(`(?i)(?:at|to|from|@)\s+([A-Za-z0-9\s&]+?)(?:\s+on|\s+dated|\s+ref|\.|$)`),
	// explicit label: "merchant: SWIGGY", "beneficiary RAVI KUMAR"
	regexp.MustCompile(`(?i)(?:merchant|payee|beneficiary)[:\s]+([A-Za-z0-9\s&]+?)(?:\s+on|\s+ref|\.|$)`),
	// "to <name> via/UPI/ref" with a bounded name length
	regexp.MustCompile(`(?i)to\s+([A-Za-z][A-Za-z0-9\s&]{2,20}?)\s+(?:via|UPI|ref)`),
}

// cardPatterns capture the last 4 digits of a masked card or account.
var cardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:card|a/c|account)\s*(?:ending|no\.?|xx+)\s*(\d{4})`),
	regexp.MustCompile(`(?i)xx+(\d{4})`),
}

var upiPattern = regexp.MustCompile(`(?i)UPI|IMPS|NEFT|RTGS`)

// bankSenders is the allow list of known bank and payment institution
// short-codes found in Indian SMS sender IDs.
var bankSenders = []string{
	"HDFCBK", "SBIINB", "ICICIB", "AXISBK", "KOTAKB", "PNBSMS",
	"BOIIND", "UNIONB", "CANARAB", "IABORB", "SCISMS", "YESBK",
	"INDUSB", "RBLBNK", "FEDBNK", "AMEXIN", "PAYTMB", "GLOSEL",
}

// senderCodePattern matches the structural shape of DLT sender IDs such as
// VM-HDFCBK123456: two uppercase letters followed by six digits, anywhere in
// the identifier.
var senderCodePattern = regexp.MustCompile(`[A-Z]{2}\d{6}`)
