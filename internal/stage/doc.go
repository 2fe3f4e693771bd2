// Package stage defines the handler contract shared by pipeline phases.
package stage
