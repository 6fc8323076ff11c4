package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRender(t *testing.T) {
	one := 1
	last := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	stats := []userStats{
		{UserID: 3, DisplayName: "ana", Games: 4, Wins: 2, BestRank: &one, TimesFound: 1, LastPlayed: &last},
		{UserID: 9, DisplayName: "bo", Games: 1},
	}

	var buf bytes.Buffer
	if err := render(&buf, stats); err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "USER  NAME  GAMES  WINS  BEST  FOUND  LAST PLAYED\n" +
		"3     ana   4      2     1     1      2026-05-01\n" +
		"9     bo    1      0     -     0      -\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}
