package indicator

// RSI calculates the Relative Strength Index.
//
// With SmoothingSimple the averages are the plain means of the trailing
// period gains and losses. With SmoothingWilder the first averages are a
// simple seed over period changes, after which
// avg = (prevAvg*(period-1) + x) / period.
type RSI struct {
	period    int
	smoothing Smoothing
	count     int // closes received
	prevClose float64

	// trailing window of changes, used by SmoothingSimple
	gains  []float64
	losses []float64
	idx    int

	avgGain float64
	avgLoss float64
	current float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int, smoothing Smoothing) *RSI {
	r := &RSI{period: period, smoothing: smoothing}
	if smoothing == SmoothingSimple {
		r.gains = make([]float64, period)
		r.losses = make([]float64, period)
	}
	return r
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(close float64) {
	r.count++

	if r.count == 1 {
		// First close, no change yet
		r.prevClose = close
		return
	}

	delta := close - r.prevClose
	r.prevClose = close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.smoothing == SmoothingSimple {
		r.updateSimple(gain, loss)
		return
	}
	r.updateWilder(gain, loss)
}

func (r *RSI) updateSimple(gain, loss float64) {
	r.gains[r.idx] = gain
	r.losses[r.idx] = loss
	r.idx = (r.idx + 1) % r.period

	if r.count <= r.period {
		return
	}

	// Re-sum the window instead of keeping a running total so a window
	// without losses yields an exact zero.
	var sumGain, sumLoss float64
	for i := 0; i < r.period; i++ {
		sumGain += r.gains[i]
		sumLoss += r.losses[i]
	}
	p := float64(r.period)
	r.avgGain = sumGain / p
	r.avgLoss = sumLoss / p
	r.current = relativeStrengthIndex(r.avgGain, r.avgLoss)
}

func (r *RSI) updateWilder(gain, loss float64) {
	if r.count <= r.period+1 {
		// Accumulation phase: build initial averages
		r.avgGain += gain
		r.avgLoss += loss

		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = relativeStrengthIndex(r.avgGain, r.avgLoss)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = relativeStrengthIndex(r.avgGain, r.avgLoss)
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// Reset clears the RSI state for reuse.
func (r *RSI) Reset() {
	r.count = 0
	r.prevClose = 0
	r.idx = 0
	r.avgGain = 0
	r.avgLoss = 0
	r.current = 0
	for i := range r.gains {
		r.gains[i] = 0
		r.losses[i] = 0
	}
}

// relativeStrengthIndex is 100 - 100/(1+RS). A zero average loss is 100,
// including the flat case where the average gain is zero too.
func relativeStrengthIndex(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
