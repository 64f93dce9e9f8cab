// Package event defines the closed catalog of lifecycle events binjuice can
// react to, the subscription mask over that catalog, and the conversion of
// raw host-supplied callback arguments into typed values.
package event
