// Package constructor rebuilds renderable components from loaded mesh
// data. The component model is a small engine-agnostic stand-in for a
// host scene graph: an actor owns components, scene components form a
// transform hierarchy.
package constructor

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
)

type Component interface {
	Base() *SceneComponent
}

// SceneComponent is the transform node every mesh component embeds.
type SceneComponent struct {
	name              string
	relativeTransform mgl32.Mat4

	parent   *SceneComponent
	children []*SceneComponent

	owner      *Actor
	replicated bool
	registered bool
}

func NewSceneComponent(name string) *SceneComponent {
	return &SceneComponent{
		name:              name,
		relativeTransform: mgl32.Ident4(),
	}
}

func (c *SceneComponent) Base() *SceneComponent { return c }

func (c *SceneComponent) Name() string { return c.name }

func (c *SceneComponent) RelativeTransform() mgl32.Mat4 { return c.relativeTransform }

func (c *SceneComponent) SetRelativeTransform(m mgl32.Mat4) { c.relativeTransform = m }

// ComponentToWorld composes relative transforms up the attachment chain.
func (c *SceneComponent) ComponentToWorld() mgl32.Mat4 {
	if c.parent == nil {
		return c.relativeTransform
	}
	return c.parent.ComponentToWorld().Mul4(c.relativeTransform)
}

func (c *SceneComponent) AttachToComponent(parent *SceneComponent) {
	if parent == nil {
		log.Panicf("[constructor] Cannot attach component %q to a nil parent", c.name)
	}
	if c.parent != nil {
		log.Panicf("[constructor] Component %q is already attached to %q", c.name, c.parent.name)
	}
	c.parent = parent
	parent.children = append(parent.children, c)
}

func (c *SceneComponent) Owner() *Actor               { return c.owner }
func (c *SceneComponent) Parent() *SceneComponent     { return c.parent }
func (c *SceneComponent) Children() []*SceneComponent { return c.children }
func (c *SceneComponent) SetIsReplicated(r bool)      { c.replicated = r }
func (c *SceneComponent) IsReplicated() bool          { return c.replicated }
func (c *SceneComponent) IsRegistered() bool          { return c.registered }

// Actor is the owner object components are registered with.
type Actor struct {
	name       string
	root       *SceneComponent
	components []Component
}

func NewActor(name string) *Actor {
	return &Actor{name: name}
}

func (a *Actor) Name() string { return a.name }

func (a *Actor) RootComponent() *SceneComponent { return a.root }

func (a *Actor) SetRootComponent(c *SceneComponent) { a.root = c }

func (a *Actor) Components() []Component { return a.components }

// RegisterComponent makes the component live on the actor. Components can
// be constructed unregistered and registered later by the host.
func (a *Actor) RegisterComponent(c Component) {
	base := c.Base()
	if base.registered {
		return
	}
	base.owner = a
	base.registered = true
	a.components = append(a.components, c)
}
