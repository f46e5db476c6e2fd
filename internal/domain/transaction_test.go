package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestPeriodKeys(t *testing.T) {
	tests := []struct {
		date        civil.Date
		wantMonth   string
		wantQuarter string
	}{
		{civil.Date{Year: 2024, Month: time.January, Day: 15}, "2024-01", "2024-Q1"},
		{civil.Date{Year: 2024, Month: time.March, Day: 31}, "2024-03", "2024-Q1"},
		{civil.Date{Year: 2024, Month: time.April, Day: 1}, "2024-04", "2024-Q2"},
		{civil.Date{Year: 2024, Month: time.December, Day: 31}, "2024-12", "2024-Q4"},
	}

	for _, tt := range tests {
		if got := MonthKey(tt.date); got != tt.wantMonth {
			t.Errorf("MonthKey(%s) = %q, want %q", tt.date, got, tt.wantMonth)
		}
		if got := QuarterKey(tt.date); got != tt.wantQuarter {
			t.Errorf("QuarterKey(%s) = %q, want %q", tt.date, got, tt.wantQuarter)
		}
	}
}

func TestWeekday(t *testing.T) {
	line := TransactionLine{Date: civil.Date{Year: 2024, Month: time.March, Day: 4}}
	if got := line.Weekday(); got != "Monday" {
		t.Errorf("Expected Monday for 2024-03-04, got %s", got)
	}
}

func TestUnknownMarginIsDistinctFromZero(t *testing.T) {
	zero := KnownMargin(0)
	if !zero.Known {
		t.Error("A zero margin must still count as known")
	}
	if UnknownMargin.Known {
		t.Error("The unknown sentinel must not count as known")
	}
}

func TestWeekdaysOrder(t *testing.T) {
	if len(Weekdays) != 7 {
		t.Fatalf("Expected 7 weekdays, got %d", len(Weekdays))
	}
	if Weekdays[0] != "Monday" || Weekdays[6] != "Sunday" {
		t.Errorf("Expected Monday-first order, got %v", Weekdays)
	}
}
