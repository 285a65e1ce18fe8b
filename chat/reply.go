package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pantrybot/intent"
	"pantrybot/inventory"
	"pantrybot/tools"

	"github.com/shopspring/decimal"
)

const helpText = `I keep track of the ingredients in your kitchen. Tell me things like:
- "bought 500ml milk expiring Friday, in the fridge"
- "what do I have?"
- "what's expiring in the next 5 days?"
- "used 200ml of milk" or "remove 3 bananas"
- "all the bananas are gone" or "delete 7"
- "move the cheese to the freezer"
Send "tools" to list the operations or "ping" to check that I'm here.`

func amount(q decimal.Decimal, unit string) string {
	if unit == "" {
		return q.String()
	}
	return q.String() + " " + unit
}

func describe(r inventory.Record) string {
	var details []string
	if r.ExpiresAt != "" {
		details = append(details, "expires "+r.ExpiresAt)
	}
	if r.Location != "" {
		details = append(details, r.Location)
	}
	if r.Notes != "" {
		details = append(details, r.Notes)
	}
	s := fmt.Sprintf("#%d %s, %s", r.ID, r.Name, amount(r.Quantity, r.Unit))
	if len(details) > 0 {
		s += " (" + strings.Join(details, ", ") + ")"
	}
	return s
}

func addedReply(r inventory.Record) string {
	return "Added " + describe(r) + "."
}

func listReply(l inventory.Listing) string {
	var b strings.Builder
	if len(l.Records) == 0 {
		b.WriteString("The inventory is empty.")
	} else {
		fmt.Fprintf(&b, "You have %d ingredient(s):", len(l.Records))
		for _, r := range l.Records {
			b.WriteString("\n- ")
			b.WriteString(describe(r))
		}
	}
	if l.Degraded {
		fmt.Fprintf(&b, "\n(The inventory is unreachable; this is a saved copy from %s.)", l.AsOf.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func daysPhrase(daysLeft int) string {
	switch {
	case daysLeft < -1:
		return fmt.Sprintf("expired %d days ago", -daysLeft)
	case daysLeft == -1:
		return "expired yesterday"
	case daysLeft == 0:
		return "expires today"
	case daysLeft == 1:
		return "expires tomorrow"
	}
	return fmt.Sprintf("expires in %d days", daysLeft)
}

// ExpiryText renders an expiry report as plain text. The digest posts the
// same text.
func ExpiryText(report inventory.ExpiryReport) string {
	var b strings.Builder
	if len(report.Items) == 0 {
		fmt.Fprintf(&b, "Nothing expires within %d day(s).", report.ThresholdDays)
	} else {
		fmt.Fprintf(&b, "Expiring within %d day(s) of %s:", report.ThresholdDays, report.ReferenceDate)
		for _, item := range report.Items {
			fmt.Fprintf(&b, "\n- %s (#%d, %s) %s", item.Record.Name, item.Record.ID,
				amount(item.Record.Quantity, item.Record.Unit), daysPhrase(item.DaysLeft))
		}
	}
	if report.Degraded {
		b.WriteString("\n(The inventory is unreachable; based on a saved copy.)")
	}
	return b.String()
}

func deletedReply(r inventory.Record) string {
	return fmt.Sprintf("Deleted #%d %s.", r.ID, r.Name)
}

func reducedReply(red inventory.Reduction) string {
	r := red.Record
	if red.Removed {
		return fmt.Sprintf("Used the last %s of %s, so #%d is removed.", amount(red.Delta, r.Unit), r.Name, r.ID)
	}
	return fmt.Sprintf("Reduced %s from %s to %s.", r.Name, amount(red.Previous, r.Unit), amount(r.Quantity, r.Unit))
}

func updatedReply(r inventory.Record) string {
	if r.Quantity.IsZero() {
		return fmt.Sprintf("Quantity of %s set to 0, so #%d is removed.", r.Name, r.ID)
	}
	return "Updated " + describe(r) + "."
}

func toolsReply(registry *tools.Registry) string {
	var b strings.Builder
	b.WriteString("Available operations:")
	for _, t := range registry.GetTools() {
		fmt.Fprintf(&b, "\n- %s: %s", t.Name(), t.Title())
	}
	b.WriteString("\nLiteral commands: ping, help, tools")
	return b.String()
}

// ErrorReply maps err to a short message for the user.
func ErrorReply(err error) string {
	var notFound *inventory.NotFoundError
	var short *inventory.InsufficientQuantityError
	switch {
	case errors.As(err, &notFound):
		return fmt.Sprintf("I couldn't find an ingredient matching %q.", notFound.Token)
	case errors.As(err, &short):
		return fmt.Sprintf("Can't remove %s of %s: only %s left.",
			amount(short.Requested, short.Unit), short.Name, amount(short.Current, short.Unit))
	case errors.Is(err, inventory.ErrInvalidArgument):
		return "That doesn't look right: " + reason(err, inventory.ErrInvalidArgument)
	case errors.Is(err, inventory.ErrStorageUnavailable):
		return "The inventory is unreachable right now, so nothing was changed. Please try again shortly."
	case errors.Is(err, intent.ErrParseFailure):
		return `Sorry, I didn't understand that. Try something like "bought 2 l milk expiring Friday", or send "help".`
	case errors.Is(err, intent.ErrUpstreamTimeout):
		return "The language model took too long to answer. Nothing was changed; please try again."
	case errors.Is(err, intent.ErrUpstreamUnavailable):
		return "The language model is unavailable right now. Nothing was changed; please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled before it finished."
	}
	return "Something went wrong while handling that message."
}

// reason strips the sentinel prefix from a wrapped error message.
func reason(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}
