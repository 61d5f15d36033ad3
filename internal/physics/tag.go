package physics

import "fmt"

// BodyKind discriminates what a physics body stands for.
type BodyKind uint8

const (
	KindProjectile BodyKind = iota + 1
	KindMount
	KindTerrain
)

func (k BodyKind) String() string {
	switch k {
	case KindProjectile:
		return "projectile"
	case KindMount:
		return "mount"
	case KindTerrain:
		return "terrain"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// BodyTag links a physics body to the game object it represents.
type BodyTag struct {
	Kind BodyKind
	ID   int
}

func (t BodyTag) String() string {
	return fmt.Sprintf("%s#%d", t.Kind, t.ID)
}

// ProjectileTag tags a projectile body.
func ProjectileTag(id int) BodyTag { return BodyTag{Kind: KindProjectile, ID: id} }

// MountTag tags a mount body.
func MountTag(id int) BodyTag { return BodyTag{Kind: KindMount, ID: id} }

// TerrainTag tags a terrain collider.
func TerrainTag(id int) BodyTag { return BodyTag{Kind: KindTerrain, ID: id} }
