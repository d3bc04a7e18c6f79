package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/base.txt
	baseRaw string

	//go:embed template/booking.txt
	bookingRaw string

	//go:embed template/inquiry.txt
	inquiryRaw string

	//go:embed template/availability.txt
	availabilityRaw string

	//go:embed template/reschedule.txt
	rescheduleRaw string

	//go:embed template/cancel.txt
	cancelRaw string

	//go:embed template/general.txt
	generalRaw string
)

// PromptSet holds the loaded prompt content. The base prompt carries the
// business snapshot; the per-intent prompts are appended to it.
type PromptSet struct {
	Router       string
	Base         string
	Booking      string
	Inquiry      string
	Availability string
	Reschedule   string
	Cancel       string
	General      string
}

// LoadPromptSet returns the trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:       strings.TrimSpace(routerRaw),
		Base:         strings.TrimSpace(baseRaw),
		Booking:      strings.TrimSpace(bookingRaw),
		Inquiry:      strings.TrimSpace(inquiryRaw),
		Availability: strings.TrimSpace(availabilityRaw),
		Reschedule:   strings.TrimSpace(rescheduleRaw),
		Cancel:       strings.TrimSpace(cancelRaw),
		General:      strings.TrimSpace(generalRaw),
	}
}
