// Package dbus exposes binjuice on the session bus as the
// io.github.jmylchreest.BinJuice service.
//
// The analysis host runs binjuice as an external process. A small shim inside
// the host calls AnalysisComplete when a document finishes its first analysis
// pass, asks Subscription which callbacks to forward for that document, and
// then relays each one through Notify. The Subscribed and Unsubscribed
// signals tell the shim when a document's forwarding set changes.
package dbus
