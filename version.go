// Package conductor carries module-wide identity shared by the CLI and the
// tool gateway handshake.
package conductor

// Version is the module version reported to tool servers and by the CLI.
const Version = "0.1.0"
