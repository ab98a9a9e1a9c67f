package automaton

// Version is the release of the module, overridden at build time with
// -ldflags "-X github.com/messagemind/automaton.Version=...".
var Version = "0.4.0"
