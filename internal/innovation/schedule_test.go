package innovation

import (
	"testing"

	"github.com/ksred/innovest-portal/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	assert.Equal(t, "09:30:00", NormalizeTime("09:30"))
	assert.Equal(t, "09:30:00", NormalizeTime("09:30:45"))
	assert.Equal(t, "9:30", NormalizeTime(" 9:30 "))
	assert.Equal(t, "", NormalizeTime(""))
}

func TestNormalizeSchedule(t *testing.T) {
	out, err := NormalizeSchedule(ScheduleUpdate{
		InventionID:  4001,
		BidStartTime: "10:00",
		BidEndTime:   "18:15:59",
		BidStartDate: "2026-10-20",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", out.BidStartTime)
	assert.Equal(t, "18:15:00", out.BidEndTime)
}

func TestNormalizeScheduleErrors(t *testing.T) {
	cases := []struct {
		name   string
		in     ScheduleUpdate
		fields map[string]string
	}{
		{
			name:   "end before start",
			in:     ScheduleUpdate{InventionID: 1, BidStartTime: "18:00", BidEndTime: "09:00"},
			fields: map[string]string{"bidEndTime": MsgEndBeforeStart},
		},
		{
			name:   "equal times",
			in:     ScheduleUpdate{InventionID: 1, BidStartTime: "09:00:00", BidEndTime: "09:00:30"},
			fields: map[string]string{"bidEndTime": MsgEndBeforeStart},
		},
		{
			name:   "bad format",
			in:     ScheduleUpdate{InventionID: 1, BidStartTime: "25:00", BidEndTime: "9am"},
			fields: map[string]string{"bidStartTime": MsgTimeFormat, "bidEndTime": MsgTimeFormat},
		},
		{
			name:   "missing",
			in:     ScheduleUpdate{InventionID: 1},
			fields: map[string]string{"bidStartTime": MsgTimeFormat, "bidEndTime": MsgTimeFormat},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeSchedule(tc.in)
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.fields, verr.Fields)
		})
	}
}

func TestNormalizeScheduleBadDate(t *testing.T) {
	_, err := NormalizeSchedule(ScheduleUpdate{
		InventionID:  1,
		BidStartTime: "10:00",
		BidEndTime:   "11:00",
		BidStartDate: "20/10/2026",
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "bidStartDate")
}

func TestParseSalesData(t *testing.T) {
	values, err := ParseSalesData("100, 200,300")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200, 300}, values)

	_, err = ParseSalesData("100, abc, 3.5")
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid values: abc, 3.5. Please enter comma-separated integers.", verr.Fields["salesData"])
}
