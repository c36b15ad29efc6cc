// Package repository inspects directories that are candidates for a
// workspace or for a repository served from an orchestration root.
//
// A directory qualifies when it is the root of a git checkout or carries one
// of ProjectMarkers. Git access goes through go-git so no git binary is
// required.
package repository
