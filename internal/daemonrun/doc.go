// Package daemonrun wires configuration, storage, discovery, aggregation and
// scheduling into a running process for the serve and job commands.
package daemonrun
