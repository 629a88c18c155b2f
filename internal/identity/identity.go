// Package identity names long-lived components such as a persistent index.
package identity

// Provider is implemented by components that keep a stable ID across
// restarts. Servers report it from GET /id.
type Provider interface {
	ID() string
}
