// Package prompt assembles the grounded instruction prompt sent to the
// inference model. Composition is pure: the output depends only on the
// tenant identity, the retrieved context, and the question text.
package prompt
