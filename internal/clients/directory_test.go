package clients

import (
	"strings"
	"testing"
)

func TestSelectColumnsOrderMatchesScan(t *testing.T) {
	caps, err := CapabilitiesFromColumns(map[string]bool{
		"full_name": true, "phone_digits": true, "tg_user_id": true,
		"status": true, "last_updated": true,
	})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDirectory(nil, caps)

	cols := d.selectColumns()
	fixed := []string{
		"id", "full_name", "phone", "bot_tg_user_id",
		"bonus_balance", "total_spent", "total_bonuses_earned", "total_bonuses_spent",
		"bot_bonus_granted", "bot_started",
	}
	for i, want := range fixed {
		if cols[i] != want {
			t.Fatalf("selectColumns()[%d] = %q, want %q", i, cols[i], want)
		}
	}
	rest := cols[len(fixed):]
	wantRest := []string{"phone_digits", "tg_user_id", "status", "last_updated"}
	if len(rest) != len(wantRest) {
		t.Fatalf("optional columns = %v, want %v", rest, wantRest)
	}
	for i, want := range wantRest {
		if rest[i] != want {
			t.Errorf("optional column [%d] = %q, want %q", i, rest[i], want)
		}
	}
}

func TestSelectColumnsMinimalSchema(t *testing.T) {
	caps, err := CapabilitiesFromColumns(map[string]bool{"name": true})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDirectory(nil, caps)

	cols := d.selectColumns()
	if len(cols) != 10 {
		t.Fatalf("selectColumns() = %v, want exactly the 10 fixed columns", cols)
	}
	if cols[1] != "name" {
		t.Errorf("name column = %q, want name", cols[1])
	}
}

func TestUpdateBuilderPlaceholders(t *testing.T) {
	b := newUpdateBuilder(7)
	b.set("phone = $2", "+79001234567")
	if got := b.next(); got != 3 {
		t.Errorf("next() = %d, want 3", got)
	}
	b.set("phone_digits = $3", "79001234567")
	b.raw("bot_started = TRUE")

	sql := "UPDATE clients SET " + strings.Join(b.assignments, ", ") + " WHERE id = $1"
	want := "UPDATE clients SET phone = $2, phone_digits = $3, bot_started = TRUE WHERE id = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(b.args) != 3 {
		t.Errorf("args = %v, want id plus two values", b.args)
	}
	if b.args[0] != int64(7) {
		t.Errorf("args[0] = %v, want the row id", b.args[0])
	}
}

func TestUpdateBuilderEmpty(t *testing.T) {
	b := newUpdateBuilder(1)
	if !b.empty() {
		t.Error("fresh builder should be empty")
	}
	b.raw("bot_started = TRUE")
	if b.empty() {
		t.Error("builder with an assignment should not be empty")
	}
}

func TestChatUserFullName(t *testing.T) {
	tests := []struct {
		name string
		user ChatUser
		want string
	}{
		{"both", ChatUser{FirstName: "Анна", LastName: "Иванова"}, "Анна Иванова"},
		{"first only", ChatUser{FirstName: "Анна"}, "Анна"},
		{"last only", ChatUser{LastName: "Иванова"}, "Иванова"},
		{"empty", ChatUser{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
