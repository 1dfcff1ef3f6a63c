package postgres

import (
	"strings"
	"testing"
	"time"
)

func TestNullStringRoundTrip(t *testing.T) {
	if NullString(nil).Valid {
		t.Error("nil pointer must produce invalid NullString")
	}

	v := "hello"
	ns := NullString(&v)
	if !ns.Valid || ns.String != "hello" {
		t.Errorf("unexpected NullString %+v", ns)
	}
	if got := StringPtr(ns); got == nil || *got != "hello" {
		t.Error("StringPtr lost the value")
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	if NullTime(nil).Valid {
		t.Error("nil pointer must produce invalid NullTime")
	}

	now := time.Now()
	nt := NullTime(&now)
	if got := TimePtr(nt); got == nil || !got.Equal(now) {
		t.Error("TimePtr lost the value")
	}
	if TimePtr(NullTime(nil)) != nil {
		t.Error("invalid NullTime must map to nil pointer")
	}
}

func TestPrefixedDocumentColumns(t *testing.T) {
	cols := prefixedDocumentColumns("d")
	if !strings.HasPrefix(cols, "d.id, d.url") {
		t.Errorf("unexpected prefix: %s", cols)
	}
	if strings.Contains(cols, "d.d.") || strings.Contains(cols, " ,") {
		t.Errorf("malformed column list: %s", cols)
	}
	for _, col := range strings.Split(cols, ", ") {
		if !strings.HasPrefix(col, "d.") {
			t.Errorf("column %q not qualified", col)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/quarry")
	if cfg.URL != "postgres://localhost/quarry" {
		t.Errorf("unexpected URL %s", cfg.URL)
	}
	if cfg.MaxOpenConns <= 0 || cfg.MaxIdleConns <= 0 {
		t.Error("expected positive pool sizes")
	}
}
