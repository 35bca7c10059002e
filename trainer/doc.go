// Package trainer wires configuration, data and model into training runs.
// Trainers are registered by name and selected by the "trainer" key of the
// configuration.
package trainer
