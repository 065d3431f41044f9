package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/model"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Recommendation
	}{
		{0, model.RecommendSell},
		{2.999, model.RecommendSell},
		{3.0, model.RecommendSell},
		{math.Nextafter(3, 4), model.RecommendHold},
		{5.0, model.RecommendHold},
		{math.Nextafter(7, 6), model.RecommendHold},
		{7.0, model.RecommendBuy},
		{8.34, model.RecommendBuy},
		{10, model.RecommendBuy},
		{math.NaN(), model.RecommendHold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score=%v", tt.score)
	}
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.ErrorIs(t, Thresholds{Buy: 5, Sell: 5}.Validate(), fuzzy.ErrConfiguration)
	assert.ErrorIs(t, Thresholds{Buy: 3, Sell: 7}.Validate(), fuzzy.ErrConfiguration)
	assert.ErrorIs(t, Thresholds{Buy: math.NaN(), Sell: 3}.Validate(), fuzzy.ErrConfiguration)
	assert.ErrorIs(t, Thresholds{Buy: 1, Sell: 2}.Validate(), ErrConfiguration)
}

func TestThresholds_Custom(t *testing.T) {
	th := Thresholds{Buy: 6, Sell: 4}
	assert.Equal(t, model.RecommendBuy, th.Classify(6))
	assert.Equal(t, model.RecommendSell, th.Classify(4))
	assert.Equal(t, model.RecommendHold, th.Classify(5))
}
