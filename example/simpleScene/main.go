package main

import (
	"fmt"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// EventPrinter affiche les événements de la scène
type EventPrinter struct{}

func (p *EventPrinter) HandleContactStarted(o1, o2 *plume.CollisionObject, gen plume.ContactGenerator) {
	fmt.Printf("💥 Contact started: %v / %v\n", o1.Data(), o2.Data())
	for i, contact := range gen.Contacts() {
		fmt.Printf("   Point %d: world1=%v depth=%.4f normal=%v\n",
			i, contact.World1, contact.Depth, contact.Normal)
	}
}

func (p *EventPrinter) HandleContactStopped(o1, o2 *plume.CollisionObject) {
	fmt.Printf("👋 Contact stopped: %v / %v\n", o1.Data(), o2.Data())
}

func (p *EventPrinter) HandleProximity(o1, o2 *plume.CollisionObject, prev, new plume.Proximity) {
	fmt.Printf("📡 Proximity: %v / %v : %v -> %v\n", o1.Data(), o2.Data(), prev, new)
}

func main() {
	world := plume.NewWorld(0.1)

	printer := &EventPrinter{}
	world.RegisterContactHandler("printer", printer)
	world.RegisterProximityHandler("printer", printer)

	// Un sol, une balle qui tombe dessus, et un capteur sur la trajectoire
	world.Add(shape.NewTransform(),
		&shape.Plane{Normal: mgl64.Vec3{0, 1, 0}, Offset: 0},
		plume.NewCollisionGroups(), plume.ContactsQuery(0.02), "ground")

	world.Add(shape.Translation(0, 3, 0),
		&shape.Cuboid{HalfExtents: mgl64.Vec3{1, 0.5, 1}},
		plume.NewCollisionGroups(), plume.ProximityQuery(0), "sensor")

	ball := world.Add(shape.Translation(0, 6, 0),
		&shape.Ball{Radius: 0.5},
		plume.NewCollisionGroups(), plume.ContactsQuery(0.02), "ball")

	// Chute libre naïve : la position est intégrée ici, le monde ne fait
	// que la détection
	y := 6.0
	velocity := 0.0
	const dt = 1.0 / 60

	for step := 0; step < 240; step++ {
		velocity -= 9.81 * dt
		y += velocity * dt
		if y < 0.5 {
			y = 0.5
			velocity = 0
		}

		world.SetPosition(ball, shape.Translation(0, y, 0))
		world.Update()
	}

	fmt.Printf("\n%d broad phase pairs at rest\n", world.NumInterferences())
	for _, contact := range world.Contacts() {
		fmt.Printf("resting contact: %v depth=%.4f\n", contact.World1, contact.Depth)
	}
}
