package bonus

import "testing"

func TestNewLedgerDefaults(t *testing.T) {
	l := NewLedger(nil, 0, 0)
	if l.Amount() != 300 {
		t.Errorf("Amount() = %d, want 300", l.Amount())
	}
	if l.expiryDays != 30 {
		t.Errorf("expiryDays = %d, want 30", l.expiryDays)
	}

	l = NewLedger(nil, -5, -1)
	if l.Amount() != 300 || l.expiryDays != 30 {
		t.Errorf("negative config not normalized: amount=%d days=%d", l.Amount(), l.expiryDays)
	}
}

func TestNewLedgerConfigured(t *testing.T) {
	l := NewLedger(nil, 500, 14)
	if l.Amount() != 500 {
		t.Errorf("Amount() = %d, want 500", l.Amount())
	}
	if l.expiryDays != 14 {
		t.Errorf("expiryDays = %d, want 14", l.expiryDays)
	}
}
