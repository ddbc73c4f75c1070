package main

import (
	"testing"
	"time"
)

func TestDBSettingsRoundtrip(t *testing.T) {
	db := testDB(t)

	if got := db.GetSetting("missing"); got != "" {
		t.Errorf("expected empty value for missing key, got %q", got)
	}

	if err := db.SetSetting("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetSetting("k", "v2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := db.GetSetting("k"); got != "v2" {
		t.Errorf("expected v2, got %q", got)
	}
}

func TestDBStatsUpsert(t *testing.T) {
	db := testDB(t)
	id, err := db.CreatePlayer("alice", "hash")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	db.RecordResult(id, string(GameCardDuel), true)
	db.RecordResult(id, string(GameCardDuel), false)
	db.RecordResult(id, string(GameArena), true)

	stats, err := db.GetStats(id)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected stats for 2 game types, got %d", len(stats))
	}
	for _, s := range stats {
		switch s.GameType {
		case string(GameCardDuel):
			if s.Wins != 1 || s.Matches != 2 {
				t.Errorf("cardduel: expected 1/2, got %d/%d", s.Wins, s.Matches)
			}
		case string(GameArena):
			if s.Wins != 1 || s.Matches != 1 {
				t.Errorf("arena: expected 1/1, got %d/%d", s.Wins, s.Matches)
			}
		}
	}
}

func TestDBMatchHistory(t *testing.T) {
	db := testDB(t)
	if err := db.RecordMatch(string(GameArena), "r1", "c1", 42.5); err != nil {
		t.Fatalf("record match: %v", err)
	}
}

func TestDBInsertEventsBatch(t *testing.T) {
	db := testDB(t)
	events := []AnalyticsEvent{
		{Type: EvtSessionStart, SessionID: "s1", Timestamp: time.Now().UTC()},
		{Type: EvtMatchStart, SessionID: "r1", Data: "arena", Timestamp: time.Now().UTC()},
	}
	if err := db.InsertEvents(events); err != nil {
		t.Fatalf("insert events: %v", err)
	}
	if err := db.InsertEvents(nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}

func TestDBGetPlayerByUsername(t *testing.T) {
	db := testDB(t)
	db.CreatePlayer("bob", "hash")

	p, err := db.GetPlayerByUsername("bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p == nil || p.Username != "bob" {
		t.Fatalf("expected bob, got %+v", p)
	}

	p, err = db.GetPlayerByUsername("ghost")
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if p != nil {
		t.Error("expected nil for an absent account")
	}
}
