package commands

// ClientContextKey is the context key under which the daemon client is
// stored in the command context.
var ClientContextKey = &struct{}{}
