package clipio

import (
	"slices"

	"github.com/google/uuid"

	"github.com/blockforge/clipio/internal/format"
)

// PermLoadOther allows loading clipboards outside the actor's own save
// directory, including paths that climb with "../".
const PermLoadOther = "clipio.schematic.load.other"

// Actor is whoever a clipboard is loaded for.
type Actor interface {
	// UniqueID names the actor's per-actor save directory.
	UniqueID() uuid.UUID

	// WorldName is the world clipboards are materialized in.
	WorldName() string

	HasPermission(node string) bool
}

// User is a plain Actor. The "*" permission grants every node.
type User struct {
	ID          uuid.UUID
	World       string
	Permissions []string
}

// Compile-time check that User implements Actor.
var _ Actor = User{}

func (u User) UniqueID() uuid.UUID { return u.ID }
func (u User) WorldName() string   { return u.World }

// HasPermission reports whether node or "*" was granted.
func (u User) HasPermission(node string) bool {
	return slices.Contains(u.Permissions, node) || slices.Contains(u.Permissions, "*")
}

func worldContext(a Actor) *format.WorldContext {
	if a == nil {
		return nil
	}
	return &format.WorldContext{World: a.WorldName(), Actor: a.UniqueID()}
}
