package enums

import "fmt"

// ReportReason categorizes why a visitor flagged a profile.
type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonFake          ReportReason = "fake"
	ReportReasonInappropriate ReportReason = "inappropriate"
	ReportReasonScam          ReportReason = "scam"
	ReportReasonUnderage      ReportReason = "underage"
	ReportReasonOther         ReportReason = "other"
)

var validReportReasons = []ReportReason{
	ReportReasonSpam,
	ReportReasonFake,
	ReportReasonInappropriate,
	ReportReasonScam,
	ReportReasonUnderage,
	ReportReasonOther,
}

// String implements fmt.Stringer.
func (s ReportReason) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ReportReason) IsValid() bool {
	for _, candidate := range validReportReasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReportReason converts raw input into a ReportReason.
func ParseReportReason(value string) (ReportReason, error) {
	for _, candidate := range validReportReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report reason %q", value)
}
