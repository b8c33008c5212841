package roster

import (
	"errors"
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 30, 0, time.UTC)
	berlin := time.FixedZone("CEST", 2*60*60)

	for _, tc := range []struct {
		name        string
		date, clock string
		loc         *time.Location
		want        time.Time
		wantErr     string // expected layout hint
	}{
		{name: "clock later today", clock: "18:00", want: time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)},
		{name: "clock this minute", clock: "12:00", want: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)},
		{name: "clock already passed", clock: "11:59", want: time.Date(2026, 10, 20, 11, 59, 0, 0, time.UTC)},
		{name: "clock in zone", clock: "20:00", loc: berlin, want: time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)},
		{name: "date and clock", date: "24/12/2026", clock: "09:15", want: time.Date(2026, 12, 24, 9, 15, 0, 0, time.UTC)},
		{name: "single-digit day and month", date: "1/2/2027", clock: "09:15", want: time.Date(2027, 2, 1, 9, 15, 0, 0, time.UTC)},
		{name: "mixed padding", date: "05/3/2027", clock: "18:00", want: time.Date(2027, 3, 5, 18, 0, 0, 0, time.UTC)},
		{name: "day out of range", date: "32/1/2027", clock: "18:00", wantErr: LayoutDateTimeHint},
		{name: "padded input", date: " 24/12/2026 ", clock: " 09:15 ", want: time.Date(2026, 12, 24, 9, 15, 0, 0, time.UTC)},
		{name: "clock without colon", clock: "1800", wantErr: LayoutClockHint},
		{name: "clock out of range", clock: "25:00", wantErr: LayoutClockHint},
		{name: "empty clock", wantErr: LayoutClockHint},
		{name: "iso date", date: "2026-12-24", clock: "09:15", wantErr: LayoutDateTimeHint},
		{name: "date missing clock", date: "24/12/2026", wantErr: LayoutDateTimeHint},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSchedule(tc.date, tc.clock, tc.loc, now)
			if tc.wantErr != "" {
				var re *Error
				if !errors.As(err, &re) || !errors.Is(err, ErrInvalidTimeFormat) || re.Expected != tc.wantErr {
					t.Fatalf("got %v, want ErrInvalidTimeFormat expecting %s", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSchedule: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestParseFreeText(t *testing.T) {
	for _, tc := range []struct {
		name    string
		in      string
		want    FreeText
		wantErr bool
	}{
		{
			name: "full",
			in:   "create event Raid at 18:00 mount horse description Fun night out",
			want: FreeText{Name: "Raid", Clock: "18:00", MountType: "horse", Description: "Fun night out"},
		},
		{
			name: "keywords any case",
			in:   "Create Event Raid AT 18:00 Mount horse DESCRIPTION x",
			want: FreeText{Name: "Raid", Clock: "18:00", MountType: "horse", Description: "x"},
		},
		{
			name: "empty description",
			in:   "create event Raid at 18:00 mount horse description",
			want: FreeText{Name: "Raid", Clock: "18:00", MountType: "horse", Description: DefaultDescription},
		},
		{
			name: "extra whitespace",
			in:   "  create  event Raid at 18:00 mount horse description   a   b ",
			want: FreeText{Name: "Raid", Clock: "18:00", MountType: "horse", Description: "a b"},
		},
		{name: "time without colon", in: "create event raid at 1800 mount horse description fun night", wantErr: true},
		{name: "missing mount", in: "create event raid at 18:00 description fun", wantErr: true},
		{name: "wrong keyword", in: "create event raid on 18:00 mount horse description fun", wantErr: true},
		{name: "too short", in: "create event raid", wantErr: true},
		{name: "not a command", in: "hello there", wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFreeText(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidFreeText) {
					t.Fatalf("got %v, want ErrInvalidFreeText", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFreeText: %v", err)
			}
			if *got != tc.want {
				t.Errorf("got %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestIsCreateMessage(t *testing.T) {
	for in, want := range map[string]bool{
		"create event x":      true,
		"CREATE EVENT":        true,
		"create events x":     false,
		"please create event": false,
		"":                    false,
	} {
		if got := IsCreateMessage(in); got != want {
			t.Errorf("IsCreateMessage(%q) = %v, want %v", in, got, want)
		}
	}
}
