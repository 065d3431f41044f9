// Package notification delivers recommendation alerts to external channels
// (webhooks, Telegram) or the log.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fuzzy-advisor/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. The recommendation fields are
// empty for operational alerts.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	Symbol         string               `json:"symbol,omitempty"`
	Recommendation model.Recommendation `json:"recommendation,omitempty"`
	Score          float64              `json:"score,omitempty"`
	RSI            float64              `json:"rsi,omitempty"`
	AsOf           string               `json:"as_of,omitempty"`
	RunID          string               `json:"run_id,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// RecommendationAlert builds the alert for one analysis. Buy and Sell are
// warnings since they call for action; Hold is informational.
func RecommendationAlert(symbol string, rec model.Recommendation, score, rsi float64, asOf time.Time, runID string) Alert {
	level := AlertInfo
	if rec == model.RecommendBuy || rec == model.RecommendSell {
		level = AlertWarning
	}
	return Alert{
		Level:          level,
		Title:          fmt.Sprintf("%s: %s", symbol, rec),
		Message:        fmt.Sprintf("RSI %.2f, fuzzy score %.2f/10 as of %s", rsi, score, asOf.Format(model.DateLayout)),
		Symbol:         symbol,
		Recommendation: rec,
		Score:          score,
		RSI:            rsi,
		AsOf:           asOf.Format(model.DateLayout),
		RunID:          runID,
	}
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
