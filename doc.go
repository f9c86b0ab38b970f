// Package chatcore is a conversational session and transaction-gating
// engine for chat-driven payments.
//
// One Engine instance serves all users. Each inbound message is routed in
// strict priority order: an armed PIN gate consumes the message first, an
// active wizard flow second, and intent classification last. Sensitive
// operations (send funds, fund card, cash out, card withdrawal, buy) are
// armed behind a 4-digit PIN challenge and executed exactly once on a
// successful check.
//
// Engines are constructed through the Builder:
//
//	engine, err := chatcore.New().
//		WithRedis(client).
//		WithExecutor(chatcore.OpSendFunds, sender).
//		WithIdentityVerifier(dir).
//		Build()
//
// Session state lives in Redis with a sliding TTL; everything else is
// computed per message. HandleMessage serializes messages per user, so two
// concurrent messages from the same user can never race on the gate.
package chatcore
