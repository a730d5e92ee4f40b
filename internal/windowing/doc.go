// Package windowing trims conversation history to a token budget before it is
// sent to the model. Tool calls and their results are kept or dropped together.
package windowing
