package payment

import "testing"

func TestSplitCommissionConservation(t *testing.T) {
	rates := []float64{0, 0.1, 0.15, 0.2, 0.333}
	amounts := []int64{1, 99, 100, 101, 4999, 50000, 123457}
	for _, rate := range rates {
		for _, amount := range amounts {
			commission, payout := SplitCommission(amount, rate)
			if commission+payout != amount {
				t.Errorf("rate %.3f amount %d: %d + %d != %d", rate, amount, commission, payout, amount)
			}
			if commission < 0 || payout < 0 {
				t.Errorf("rate %.3f amount %d: negative split %d/%d", rate, amount, commission, payout)
			}
		}
	}
}

func TestSplitCommissionRounding(t *testing.T) {
	// 15% of 101 cents is 15.15, which rounds to 15.
	commission, payout := SplitCommission(101, 0.15)
	if commission != 15 || payout != 86 {
		t.Fatalf("got %d/%d, want 15/86", commission, payout)
	}
	// 15% of 110 cents is 16.5, which rounds half away from zero to 17.
	commission, payout = SplitCommission(110, 0.15)
	if commission != 17 || payout != 93 {
		t.Fatalf("got %d/%d, want 17/93", commission, payout)
	}
}

func TestIntentInFlight(t *testing.T) {
	inFlight := []Status{StatusPending, StatusAuthorized}
	for _, s := range inFlight {
		r := &IntentRecord{Status: s}
		if !r.InFlight() {
			t.Errorf("expected %s to be in flight", s)
		}
	}
	settled := []Status{StatusCaptured, StatusReleased, StatusRefunded, StatusFailed, StatusCancelled}
	for _, s := range settled {
		r := &IntentRecord{Status: s}
		if r.InFlight() {
			t.Errorf("expected %s not to be in flight", s)
		}
	}
}
