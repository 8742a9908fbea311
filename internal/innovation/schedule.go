package innovation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ksred/innovest-portal/pkg/validation"
)

const (
	MsgTimeFormat      = `Time must be in HH:mm:ss format (e.g., "10:00:00")`
	MsgEndBeforeStart  = "End time must be after start time"
	MsgInvalidSales    = "Invalid values: %s. Please enter comma-separated integers."
	scheduleTimeLayout = "15:04:05"
)

var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]$`)

// ScheduleUpdate is the body of PUT /api/inventions/updateBidTimes
type ScheduleUpdate struct {
	InventionID  int64  `json:"inventionId" validate:"required"`
	BidStartTime string `json:"bidStartTime" validate:"required"`
	BidEndTime   string `json:"bidEndTime" validate:"required"`
	BidStartDate string `json:"bidStartDate" validate:"omitempty,datetime=2006-01-02"`
}

// NormalizeTime turns HH:mm into HH:mm:00 and zeroes the seconds of HH:mm:ss.
// Anything else is returned unchanged for the format check to reject.
func NormalizeTime(t string) string {
	t = strings.TrimSpace(t)
	switch len(t) {
	case 5:
		return t + ":00"
	case 8:
		return t[:6] + "00"
	}
	return t
}

// NormalizeSchedule validates a bidding window and returns it with both times
// in HH:mm:ss and the end strictly after the start
func NormalizeSchedule(in ScheduleUpdate) (ScheduleUpdate, error) {
	in.BidStartTime = NormalizeTime(in.BidStartTime)
	in.BidEndTime = NormalizeTime(in.BidEndTime)

	err := validation.Struct(in, validation.Messages{
		"bidStartTime.required": MsgTimeFormat,
		"bidEndTime.required":   MsgTimeFormat,
		"bidStartDate":          "bidStartDate must be a date in YYYY-MM-DD format",
	})

	fields := map[string]string{}
	if in.BidStartTime != "" && !timePattern.MatchString(in.BidStartTime) {
		fields["bidStartTime"] = MsgTimeFormat
	}
	if in.BidEndTime != "" && !timePattern.MatchString(in.BidEndTime) {
		fields["bidEndTime"] = MsgTimeFormat
	}
	if err == nil && len(fields) == 0 {
		start, _ := time.Parse(scheduleTimeLayout, in.BidStartTime)
		end, _ := time.Parse(scheduleTimeLayout, in.BidEndTime)
		if !end.After(start) {
			fields["bidEndTime"] = MsgEndBeforeStart
		}
	}

	if err := validation.Merge(err, fields); err != nil {
		return in, err
	}
	return in, nil
}

// ParseSalesData reads a comma separated list of integers. Every item that is
// not an integer is named in the error.
func ParseSalesData(raw string) ([]int, error) {
	items := strings.Split(raw, ",")
	values := make([]int, 0, len(items))
	var invalid []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		n, err := strconv.Atoi(item)
		if err != nil {
			invalid = append(invalid, item)
			continue
		}
		values = append(values, n)
	}
	if len(invalid) > 0 {
		return nil, &validation.Error{Fields: map[string]string{
			"salesData": fmt.Sprintf(MsgInvalidSales, strings.Join(invalid, ", ")),
		}}
	}
	return values, nil
}
