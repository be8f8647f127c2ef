package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

func TestDay(t *testing.T) {
	cases := []struct {
		tok  string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{"27)", 27, true},
		{"1 !", 1, true},
		{"4 :", 4, true},
		{"(15", 15, true},
		{"３１", 31, true},
		{"123", 12, true},
		{"9.30", 0, false},
		{"18:30", 0, false},
		{"0:30", 0, false},
		{"1730", 0, false},
		{"2024", 0, false},
		{"32", 0, false},
		{"0", 0, false},
		{"木", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.tok, func(t *testing.T) {
			got, ok := Day(tc.tok)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDayTimeDisambiguation(t *testing.T) {
	assert.False(t, IsDay("9.30"), "a clock reading must never anchor day 9")
	assert.True(t, IsDay("27)"))
}

func TestWeekday(t *testing.T) {
	cases := []struct {
		tok  string
		want entity.Weekday
		ok   bool
	}{
		{"木", entity.Thursday, true},
		{"(火)", entity.Tuesday, true},
		{"x土", entity.Saturday, true},
		{"本", entity.Thursday, true},
		{"(本)", entity.Thursday, true},
		{"士", entity.Saturday, true},
		{"目", entity.Sunday, true},
		{"9.30", "", false},
		{"!", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.tok, func(t *testing.T) {
			got, ok := Weekday(tc.tok)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWeekdayCorrectionBeatsLiteralGlyph(t *testing.T) {
	for glyph, want := range weekdayCorrections {
		got, ok := Weekday(glyph)
		assert.True(t, ok, glyph)
		assert.Equal(t, want, got, glyph)
		assert.NotEqual(t, entity.Weekday(glyph), got, glyph)
	}
}

func TestAbsence(t *testing.T) {
	for _, tok := range []string{"休", "公休", "休暇", "有休日", "休吸", "欠", "欠勤"} {
		assert.True(t, Absence(tok), tok)
	}
	for _, tok := range []string{"9.30", "木", "欠x", ""} {
		assert.False(t, Absence(tok), tok)
	}
}

func TestTimeCandidates(t *testing.T) {
	assert.Equal(t, []string{"9.30", "17:45"}, TimeCandidates("9.30~17:45"))
	assert.Equal(t, []string{"9:30"}, TimeCandidates("出９：３０"))
	assert.Empty(t, TimeCandidates("木"))
	assert.True(t, ContainsTime("a18.00b"))
	assert.False(t, ContainsTime("1800"))
}
