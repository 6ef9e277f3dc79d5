package sqlstore

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRebind(t *testing.T) {
	numbered := &Store{dialect: Dialect{NumberedParams: true}}
	plain := &Store{dialect: Dialect{}}
	query := `UPDATE projects SET current_funding = ?, state = ? WHERE id = ?`

	if got, want := numbered.rebind(query), `UPDATE projects SET current_funding = $1, state = $2 WHERE id = $3`; got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	if got := plain.rebind(query); got != query {
		t.Fatalf("plain rebind changed query: %q", got)
	}
}

func TestAmountConversion(t *testing.T) {
	for _, v := range []uint64{0, 1, 1_000_000_000, math.MaxUint64} {
		got, err := toUint64(fromUint64(v))
		if err != nil {
			t.Fatalf("toUint64(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip = %d, want %d", got, v)
		}
	}

	bad := []decimal.Decimal{
		decimal.NewFromInt(-1),
		decimal.RequireFromString("1.5"),
		decimal.RequireFromString("18446744073709551616"),
	}
	for _, d := range bad {
		if _, err := toUint64(d); err == nil {
			t.Fatalf("toUint64(%s) should fail", d)
		}
	}
}

func TestMillis(t *testing.T) {
	at := time.Date(2026, time.July, 9, 14, 3, 2, 987_654_321, time.FixedZone("x", 3600))
	got := fromMillis(toMillis(at))
	if !got.Equal(at.Truncate(time.Millisecond)) {
		t.Fatalf("fromMillis = %v, want %v", got, at.Truncate(time.Millisecond))
	}
	if got.Location() != time.UTC {
		t.Fatalf("location = %v, want UTC", got.Location())
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x INT);\nCREATE TABLE b (y INT);\n-- +migrate Down\nDROP TABLE a;"

	stmts := splitStatements(extractUpMigration(content))
	if len(stmts) != 2 {
		t.Fatalf("statements = %q", stmts)
	}
	if stmts[0] != "CREATE TABLE a (x INT)" || stmts[1] != "CREATE TABLE b (y INT)" {
		t.Fatalf("statements = %q", stmts)
	}

	if got := extractUpMigration("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("no markers = %q", got)
	}
}
