package main

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndFetchPilot(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreatePilot("Vega", "hash123")
	if err != nil {
		t.Fatalf("CreatePilot: %v", err)
	}

	p, err := db.GetPilotByCallsign("Vega")
	if err != nil || p == nil {
		t.Fatalf("GetPilotByCallsign: %v, %v", p, err)
	}
	if p.ID != id || p.PassHash != "hash123" || p.IsGuest {
		t.Errorf("unexpected pilot row: %+v", p)
	}

	// stats row created alongside
	s, err := db.GetStats(id)
	if err != nil || s == nil {
		t.Fatalf("GetStats: %v, %v", s, err)
	}
	if s.Level != 1 || s.Kills != 0 {
		t.Errorf("fresh stats should be level 1 with 0 kills: %+v", s)
	}
}

func TestDuplicateCallsignRejected(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreatePilot("Vega", "h"); err != nil {
		t.Fatalf("CreatePilot: %v", err)
	}
	if _, err := db.CreatePilot("Vega", "h2"); err == nil {
		t.Error("expected unique constraint violation")
	}

	exists, err := db.CallsignExists("Vega")
	if err != nil || !exists {
		t.Errorf("CallsignExists: %v, %v", exists, err)
	}
}

func TestGetPilotMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	p, err := db.GetPilotByCallsign("nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Error("expected nil for unknown callsign")
	}
}

func TestApplyMatchResult(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreatePilot("Vega", "h")

	xp, level, err := db.ApplyMatchResult(id, 5, 2, 40, 300, 150)
	if err != nil {
		t.Fatalf("ApplyMatchResult: %v", err)
	}
	if xp != 150 || level != 2 {
		t.Errorf("expected 150 XP at level 2, got %d at %d", xp, level)
	}

	s, _ := db.GetStats(id)
	if s.Kills != 5 || s.Deaths != 2 || s.Matches != 1 || s.BestScore != 40 {
		t.Errorf("stats not folded in: %+v", s)
	}

	// best score keeps the maximum
	db.ApplyMatchResult(id, 0, 0, 25, 100, 20)
	s, _ = db.GetStats(id)
	if s.BestScore != 40 {
		t.Errorf("best score regressed to %d", s.BestScore)
	}
}

func TestLevelForXP(t *testing.T) {
	cases := []struct{ xp, want int }{
		{0, 1},
		{149, 1},
		{150, 2},
		{449, 2},
		{450, 3},
		{-10, 1},
	}
	for _, c := range cases {
		if got := LevelForXP(c.xp); got != c.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", c.xp, got, c.want)
		}
	}
}

func TestLeaderboardExcludesGuests(t *testing.T) {
	db := openTestDB(t)
	regID, _ := db.CreatePilot("Vega", "h")
	guestID, _ := db.CreateGuest("Rookie_ab12")

	db.ApplyMatchResult(regID, 3, 0, 20, 100, 80)
	db.ApplyMatchResult(guestID, 10, 0, 90, 100, 300)

	entries, err := db.Leaderboard("kills", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Callsign != "Vega" || entries[0].Rank != 1 {
		t.Errorf("unexpected leaderboard head: %+v", entries[0])
	}
}

func TestLeaderboardIgnoresBadColumn(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreatePilot("Vega", "h")
	db.ApplyMatchResult(id, 1, 0, 5, 10, 30)

	// unknown sort keys fall back to xp instead of failing (or worse,
	// interpolating into the query)
	entries, err := db.Leaderboard("; DROP TABLE pilots", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected fallback ordering to work, got %d entries", len(entries))
	}
}

func TestMatchRecording(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreatePilot("Vega", "h")

	matchID, err := db.RecordMatch(245.5, "Vega")
	if err != nil || matchID == 0 {
		t.Fatalf("RecordMatch: %d, %v", matchID, err)
	}
	if err := db.RecordMatchPilot(matchID, id, 4, 1, 30, 90); err != nil {
		t.Fatalf("RecordMatchPilot: %v", err)
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	db := openTestDB(t)

	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("expected empty for missing key, got %q", v)
	}
	if err := db.SetSetting("k", "v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSetting("k", "v2"); err != nil {
		t.Fatalf("SetSetting upsert: %v", err)
	}
	if v := db.GetSetting("k"); v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}
}
