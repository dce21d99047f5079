package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTotalMonths(t *testing.T) {
	jan2020 := MonthIndex(2020, time.January)
	tests := []struct {
		name    string
		entries []WorkEntry
		want    int
	}{
		{
			name:    "empty",
			entries: nil,
			want:    0,
		},
		{
			name: "disjoint roles add up",
			entries: []WorkEntry{
				{StartMonth: jan2020 - 48, Months: 36},
				{StartMonth: jan2020, Months: 24},
			},
			want: 60,
		},
		{
			name: "identical ranges count once",
			entries: []WorkEntry{
				{StartMonth: jan2020, Months: 36},
				{StartMonth: jan2020, Months: 36},
				{StartMonth: jan2020, Months: 36},
			},
			want: 36,
		},
		{
			name: "partial overlap merges",
			entries: []WorkEntry{
				{StartMonth: jan2020 + 12, Months: 24},
				{StartMonth: jan2020, Months: 18},
			},
			want: 36,
		},
		{
			name: "adjacent roles join",
			entries: []WorkEntry{
				{StartMonth: jan2020, Months: 12},
				{StartMonth: jan2020 + 12, Months: 12},
			},
			want: 24,
		},
		{
			name: "undated lengths are added",
			entries: []WorkEntry{
				{StartMonth: jan2020, Months: 12},
				{Months: 6},
				{StartMonth: jan2020},
			},
			want: 18,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ResumeProfile{WorkExperience: tt.entries}
			assert.Equal(t, tt.want, p.TotalMonths())
		})
	}
}

func TestMonthIndex(t *testing.T) {
	assert.Equal(t, 1, MonthIndex(2020, time.February)-MonthIndex(2020, time.January))
	assert.Equal(t, 1, MonthIndex(2021, time.January)-MonthIndex(2020, time.December))
}
