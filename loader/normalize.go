package loader

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetimport/config"
	"github.com/mogaika/assetimport/scene"
)

// normalizeScene premultiplies the root transform so that the whole tree
// lands in the target convention. Applied exactly once, before
// extraction; child transforms stay untouched.
//
// Source scenes are Y-up (both supported formats define Y-up). When the
// target is Z-up the basis change is a +90 degree rotation around X.
func normalizeScene(s *scene.Scene) {
	unitScale := s.UnitScaleFactor
	if override := config.GetUnitScaleOverride(); override != 0 {
		unitScale = override
	}
	if unitScale == 0 {
		unitScale = 1
	}

	m := mgl32.Scale3D(unitScale, unitScale, unitScale)
	if config.GetTargetUpAxis() == config.UpAxisZ {
		m = m.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(90)))
	}

	if s.Root == nil {
		log.Panicf("[loader] Scene without root node")
	}
	s.Root.Transform = m.Mul4(s.Root.Transform)
}
