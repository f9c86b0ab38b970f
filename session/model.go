package session

// Session is the per-user conversational state record.
//
// FlowName is empty when no wizard is active; when set, FlowStep is within
// [1, stepCount] for that flow. PendingKind is zero exactly when AwaitingPin
// is false.
type Session struct {
	UserID         string
	ChannelAddress string

	CreatedAt    int64
	LastActivity int64
	ExpiresAt    int64
	MessageCount uint32

	FlowName string
	FlowStep uint8
	FlowData map[string]string

	AwaitingPin    bool
	PendingKind    uint8
	PendingPayload map[string]string
}

// InFlow reports whether a wizard is currently active.
func (s *Session) InFlow() bool {
	return s.FlowName != ""
}

// GateArmed reports whether a pending operation is awaiting PIN confirmation.
func (s *Session) GateArmed() bool {
	return s.AwaitingPin
}
