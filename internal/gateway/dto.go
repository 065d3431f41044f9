package gateway

import "fuzzy-advisor/internal/advisor"

// Message types.
const (
	TypeAnalyze  = "ANALYZE"
	TypeAnalysis = "ANALYSIS"
	TypeError    = "ERROR"
	TypePong     = "pong"
)

// Request is a client message. Type defaults to ANALYZE; a message carrying
// only "ping" is answered with a pong.
type Request struct {
	Type   string `json:"type"`
	ReqID  string `json:"req_id"`
	Symbol string `json:"symbol"`
	From   string `json:"from"`
	To     string `json:"to"`
	Ping   int64  `json:"ping"`
}

// Message is a server message.
type Message struct {
	Type     string           `json:"type"`
	ReqID    string           `json:"req_id,omitempty"`
	Data     *advisor.Summary `json:"data,omitempty"`
	Kind     string           `json:"kind,omitempty"`
	Error    string           `json:"error,omitempty"`
	Ping     int64            `json:"ping,omitempty"`
	ServerTS int64            `json:"server_ts,omitempty"`
}

func errorMessage(reqID, kind, msg string) Message {
	return Message{Type: TypeError, ReqID: reqID, Kind: kind, Error: msg}
}
