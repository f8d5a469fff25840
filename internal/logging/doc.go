// Package logging defines the Logger interface used across bsprof and its
// zerolog backend, in console or JSON form. Components take a Logger option and
// default to Nop, so library code never writes to the terminal unless the
// application asks it to.
package logging
