package persistence

import (
	"testing"
	"time"

	"example.com/ecotrack/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{
		OccurredAt: time.Date(2025, time.November, 3, 9, 30, 0, 123456789, time.UTC),
		ID:         "act-42",
	}

	token := EncodeCursor(cursor)
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor failed: %v", err)
	}
	if !decoded.OccurredAt.Equal(cursor.OccurredAt) {
		t.Errorf("occurred_at = %v, want %v", decoded.OccurredAt, cursor.OccurredAt)
	}
	if decoded.ID != cursor.ID {
		t.Errorf("id = %q, want %q", decoded.ID, cursor.ID)
	}
}

func TestEncodeCursorNil(t *testing.T) {
	if token := EncodeCursor(nil); token != "" {
		t.Errorf("EncodeCursor(nil) = %q, want empty", token)
	}
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	cursor, err := DecodeCursor("   ")
	if err != nil {
		t.Fatalf("DecodeCursor of blank token failed: %v", err)
	}
	if cursor != nil {
		t.Errorf("cursor = %+v, want nil", cursor)
	}
}

func TestDecodeCursorRejectsBadInput(t *testing.T) {
	cases := []string{
		"not-base64!!!",
		"bm8tc2VwYXJhdG9y",         // "no-separator"
		"bm90LWEtdGltZXxhY3QtMQ==", // "not-a-time|act-1"
	}
	for _, token := range cases {
		if _, err := DecodeCursor(token); err == nil {
			t.Errorf("DecodeCursor(%q) succeeded, want error", token)
		}
	}
}
