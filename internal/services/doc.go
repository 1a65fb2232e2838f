// Package services provides error classification and context plumbing shared
// by the stage implementations and their external collaborators.
package services
