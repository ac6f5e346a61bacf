package extract

import (
	"fmt"
	"strings"
	"time"

	"tracker/internal/core"
)

// Response keys the model is asked to return.
const (
	KeyActivity      = "activity"
	KeyAmount        = "amount"
	KeyEntity        = "entity"
	KeyPaymentMode   = "payment_mode"
	KeyCategory      = "category"
	KeyRemark        = "remark"
	KeyExtractedDate = "extracted_date"
)

// BuildPrompt renders the system instruction with today as the reference
// date for relative expressions.
func BuildPrompt(today time.Time) string {
	ref := core.DateOf(today).String()
	var b strings.Builder
	fmt.Fprintf(&b, "Extract data into JSON. Today is %s.\n", ref)
	fmt.Fprintf(&b, "Fields: %s, %s, %s, %s, %s, %s, %s (YYYY-MM-DD or null).\n",
		KeyActivity, KeyAmount, KeyEntity, KeyPaymentMode, KeyCategory, KeyRemark, KeyExtractedDate)
	fmt.Fprintf(&b, "%s must be a plain number without currency symbols.\n", KeyAmount)
	fmt.Fprintf(&b, "%s must be exactly one of: %s.\n", KeyCategory, strings.Join(core.CategoryNames(), ", "))
	fmt.Fprintf(&b, "%s is the date the text mentions, resolved against %s; if no date is mentioned use %s.\n",
		KeyExtractedDate, ref, ref)
	b.WriteString("Return ONLY JSON.")
	return b.String()
}
