// Package intent classifies raw chat messages into structured intents.
//
// Classification is a deterministic first-match walk over an ordered rule
// table: the first pattern that matches the normalized message wins. The
// ordering of the table is part of the contract — a message that matches
// both a specific rule and a later generic rule must resolve to the specific
// one, so reordering entries is a behavior change and is covered by tests.
//
// Confidence values are advisory only. No caller branches on them; they are
// carried for observability.
package intent
