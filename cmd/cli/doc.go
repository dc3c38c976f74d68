// Package cli constructs the tman command-line interface. It wires the Cobra
// root command, the configuration loader, structured logging, and the registry
// services behind the provisioning workflows.
package cli
