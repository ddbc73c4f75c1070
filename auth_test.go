package main

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAuthRegisterAndLogin(t *testing.T) {
	auth := NewAuth(testDB(t))

	id, token, err := auth.Register("alice", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == 0 || token == "" {
		t.Fatal("expected a player id and a token")
	}

	loginID, loginToken, err := auth.Login("alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginID != id {
		t.Errorf("expected id %d, got %d", id, loginID)
	}
	if loginToken == "" {
		t.Error("expected a login token")
	}
}

func TestAuthWrongPassword(t *testing.T) {
	auth := NewAuth(testDB(t))
	auth.Register("bob", "correct")

	if _, _, err := auth.Login("bob", "wrong"); err == nil {
		t.Error("expected wrong password to fail")
	}
	if _, _, err := auth.Login("nobody", "whatever"); err == nil {
		t.Error("expected unknown user to fail")
	}
}

func TestAuthDuplicateUsername(t *testing.T) {
	auth := NewAuth(testDB(t))
	if _, _, err := auth.Register("carol", "password"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := auth.Register("carol", "password"); err == nil {
		t.Error("expected duplicate username to fail")
	}
}

func TestAuthValidationRules(t *testing.T) {
	auth := NewAuth(testDB(t))

	if _, _, err := auth.Register("x", "password"); err == nil {
		t.Error("expected too-short username to fail")
	}
	if _, _, err := auth.Register("thisusernameiswaytoolong", "password"); err == nil {
		t.Error("expected too-long username to fail")
	}
	if _, _, err := auth.Register("dave", "pw"); err == nil {
		t.Error("expected too-short password to fail")
	}
}

func TestAuthTokenRoundtrip(t *testing.T) {
	auth := NewAuth(testDB(t))
	id, token, err := auth.Register("erin", "password")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	gotID, gotUser, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotID != id || gotUser != "erin" {
		t.Errorf("expected (%d, erin), got (%d, %s)", id, gotID, gotUser)
	}

	if _, _, err := auth.ValidateToken("garbage.token.here"); err == nil {
		t.Error("expected garbage token to fail")
	}
}

func TestAuthSecretPersists(t *testing.T) {
	db := testDB(t)
	a1 := NewAuth(db)
	_, token, err := a1.Register("frank", "password")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// A second Auth over the same database must accept the old token
	a2 := NewAuth(db)
	if _, _, err := a2.ValidateToken(token); err != nil {
		t.Errorf("token should survive an auth restart: %v", err)
	}
}
