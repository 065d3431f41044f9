package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func feed(ind Indicator, closes ...float64) {
	for _, c := range closes {
		ind.Update(c)
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after close 3: (100+102+104)/3 = 102.0
	// SMA after close 4: (102+104+103)/3 = 103.0
	// SMA after close 5: (104+103+105)/3 = 104.0

	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() != ready[i] {
			t.Errorf("close %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 0.0001)
		}
	}
}

func TestSMA_Reset(t *testing.T) {
	sma := NewSMA(2)
	feed(sma, 10, 20)
	sma.Reset()
	if sma.Ready() {
		t.Fatal("expected not ready after Reset")
	}
	feed(sma, 1, 3)
	assertClose(t, "SMA after reset", sma.Value(), 2, 1e-12)
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

// Closes: 44.00 44.34 44.09 43.61 44.33 44.83 45.10 45.42 45.84
var rsiFixture = []float64{44.00, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84}

func TestRSI_Simple_Period5(t *testing.T) {
	// First value after 6 closes (5 changes: +.34 -.25 -.48 +.72 +.50):
	//   avgGain = 1.56/5, avgLoss = 0.73/5, RS = 2.13699
	//   RSI = 100 - 100/3.13699 = 68.112
	// Close 7 (+.27) drops +.34 from the window:
	//   gains 1.49, losses 0.73, RS = 2.04110, RSI = 67.117
	// Close 8 (+.32) drops -.25: gains 1.81, losses 0.48, RSI = 79.039
	rsi := NewRSI(5, SmoothingSimple)
	feed(rsi, rsiFixture[:5]...)
	if rsi.Ready() {
		t.Fatal("RSI(5) must not be ready after 5 closes")
	}

	rsi.Update(rsiFixture[5])
	if !rsi.Ready() {
		t.Fatal("RSI(5) must be ready after 6 closes")
	}
	assertClose(t, "RSI(5) close 6", rsi.Value(), 68.112, 0.01)

	rsi.Update(rsiFixture[6])
	assertClose(t, "RSI(5) close 7", rsi.Value(), 67.117, 0.01)

	rsi.Update(rsiFixture[7])
	assertClose(t, "RSI(5) close 8", rsi.Value(), 79.039, 0.01)
}

func TestRSI_Wilder_Period5(t *testing.T) {
	// Same SMA seed as the simple variant, then Wilder smoothing.
	rsi := NewRSI(5, SmoothingWilder)
	feed(rsi, rsiFixture[:6]...)
	assertClose(t, "RSI(5) close 6", rsi.Value(), 68.112, 0.1)

	rsi.Update(rsiFixture[6])
	assertClose(t, "RSI(5) close 7", rsi.Value(), 72.219, 0.1)

	rsi.Update(rsiFixture[7])
	assertClose(t, "RSI(5) close 8", rsi.Value(), 76.658, 0.1)
}

func TestRSI_AllUp_Is100(t *testing.T) {
	for _, sm := range []Smoothing{SmoothingSimple, SmoothingWilder} {
		rsi := NewRSI(5, sm)
		for i := 0; i < 10; i++ {
			rsi.Update(100 + float64(i))
		}
		assertClose(t, "RSI all up "+sm.String(), rsi.Value(), 100.0, 0.001)
	}
}

func TestRSI_AllDown_Is0(t *testing.T) {
	for _, sm := range []Smoothing{SmoothingSimple, SmoothingWilder} {
		rsi := NewRSI(5, sm)
		for i := 0; i < 10; i++ {
			rsi.Update(200 - float64(i))
		}
		assertClose(t, "RSI all down "+sm.String(), rsi.Value(), 0.0, 0.001)
	}
}

func TestRSI_Flat_Is100(t *testing.T) {
	// Flat prices: avgGain and avgLoss are both 0; a zero average loss
	// is defined as 100.
	rsi := NewRSI(14, SmoothingSimple)
	for i := 0; i < 40; i++ {
		rsi.Update(100)
	}
	if rsi.Value() != 100 {
		t.Errorf("RSI flat: got %v, want exactly 100", rsi.Value())
	}
}

func TestRSI_Simple_LossLeavesWindow_Exactly100(t *testing.T) {
	// One drop followed by period rises: once the drop leaves the window
	// the average loss must be exactly zero.
	rsi := NewRSI(3, SmoothingSimple)
	feed(rsi, 10, 9.7, 10.1, 10.4, 10.9)
	if rsi.Value() != 100 {
		t.Errorf("got %v, want exactly 100", rsi.Value())
	}
}

func TestRSI_Alternating_Simple_Is50(t *testing.T) {
	rsi := NewRSI(2, SmoothingSimple)
	for i := 0; i < 9; i++ {
		rsi.Update(10 + float64(i%2))
		if rsi.Ready() {
			assertClose(t, "alternating", rsi.Value(), 50, 1e-9)
		}
	}
}

func TestRSI_Reset(t *testing.T) {
	rsi := NewRSI(3, SmoothingSimple)
	feed(rsi, 1, 2, 3, 4)
	rsi.Reset()
	if rsi.Ready() {
		t.Fatal("expected not ready after Reset")
	}
	feed(rsi, 4, 3, 2, 1)
	assertClose(t, "RSI after reset", rsi.Value(), 0, 1e-12)
}

// ────────────────────────────────────────────────────────────
// Cross-indicator: same data → correct ordering
// ────────────────────────────────────────────────────────────

func TestIndicators_TrendingUp_Ordering(t *testing.T) {
	sma5 := NewSMA(5)
	sma20 := NewSMA(20)

	for i := 0; i < 30; i++ {
		c := 100 + float64(i) // steadily rising
		sma5.Update(c)
		sma20.Update(c)
	}

	if sma5.Value() <= sma20.Value() {
		t.Errorf("SMA(5) should be > SMA(20) in uptrend: SMA5=%.2f, SMA20=%.2f", sma5.Value(), sma20.Value())
	}
}
