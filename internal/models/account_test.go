package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		raw     string
		want    ClockTime
		wantErr bool
	}{
		{"00:00", ClockTime{0, 0}, false},
		{"08:30", ClockTime{8, 30}, false},
		{"23:59", ClockTime{23, 59}, false},
		{"24:00", ClockTime{}, true},
		{"12:60", ClockTime{}, true},
		{"9:00", ClockTime{}, true},
		{"12.30", ClockTime{}, true},
		{"", ClockTime{}, true},
		{"ab:cd", ClockTime{}, true},
	}
	for _, tt := range tests {
		got, err := ParseClockTime(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClockTime(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseClockTime(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestClockTimeString(t *testing.T) {
	if got := (ClockTime{Hour: 8, Minute: 5}).String(); got != "08:05" {
		t.Errorf("String = %q, want 08:05", got)
	}
}

func TestAccountConfigValidateFillsComputed(t *testing.T) {
	cfg := &AccountConfig{
		Frequency: FrequencyConfig{Type: PeriodDay, Value: 2},
		Time: TimeConfig{
			Type:  TimeRange,
			Value: []string{"09:15", "17:45"},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Time.Computed) != 2 {
		t.Fatalf("Computed len = %d", len(cfg.Time.Computed))
	}
	if cfg.Time.Computed[0] != (ClockTime{9, 15}) || cfg.Time.Computed[1] != (ClockTime{17, 45}) {
		t.Errorf("Computed = %+v", cfg.Time.Computed)
	}
}

func TestAccountConfigValidateRejections(t *testing.T) {
	tests := []struct {
		name  string
		cfg   AccountConfig
		field string
	}{
		{
			name: "bad period type",
			cfg: AccountConfig{
				Frequency: FrequencyConfig{Type: "month", Value: 1},
				Time:      TimeConfig{Type: TimeSpecific, Value: []string{"12:00"}},
			},
			field: "frequency.type",
		},
		{
			name: "negative quota",
			cfg: AccountConfig{
				Frequency: FrequencyConfig{Type: PeriodDay, Value: -1},
				Time:      TimeConfig{Type: TimeSpecific, Value: []string{"12:00"}},
			},
			field: "frequency.value",
		},
		{
			name: "range needs two values",
			cfg: AccountConfig{
				Frequency: FrequencyConfig{Type: PeriodDay, Value: 1},
				Time:      TimeConfig{Type: TimeRange, Value: []string{"12:00"}},
			},
			field: "time.value",
		},
		{
			name: "unparseable value",
			cfg: AccountConfig{
				Frequency: FrequencyConfig{Type: PeriodDay, Value: 1},
				Time:      TimeConfig{Type: TimeSpecific, Value: []string{"noon!"}},
			},
			field: "time.value[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ValidationErrors
			if !errors.As(err, &verr) {
				t.Fatalf("err type = %T", err)
			}
			found := false
			for _, fe := range verr.Fields() {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("error does not mention field %s: %v", tt.field, err)
			}
		})
	}
}

func TestDefaultAccountConfigIsValid(t *testing.T) {
	cfg := DefaultAccountConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Frequency.Type != PeriodDay || cfg.Frequency.Value != 1 {
		t.Errorf("frequency = %+v", cfg.Frequency)
	}
}

func TestPeriodTypeDuration(t *testing.T) {
	if PeriodHour.Duration() != time.Hour {
		t.Error("hour duration")
	}
	if PeriodDay.Duration() != 24*time.Hour {
		t.Error("day duration")
	}
	if PeriodWeek.Duration() != 7*24*time.Hour {
		t.Error("week duration")
	}
	if PeriodType("month").Valid() {
		t.Error("month accepted as period type")
	}
}
