// Package persona fetches and validates per-tenant identity and style
// configuration. Identity is externally owned and fetched fresh per request
// so tenants can retune their voice between requests.
package persona
