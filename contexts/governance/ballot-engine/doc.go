// Package ballotengine implements the permissioned ballot engine inside the
// governance context.
//
// The module owns the voting-session state machine: resolution and voter
// registry construction during the before-phase, the session window gate,
// single-hop delegation, double-vote prevention, and weighted tally
// accumulation. Business rules live in the application/domain layers;
// infrastructure stays behind ports and adapters.
package ballotengine
