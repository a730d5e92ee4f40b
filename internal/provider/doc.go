// Package provider adapts hosted chat models to llm.Model.
//
// Anthropic is the default backend. OpenAI is reached through langchaingo.
package provider
