package config

// Up axis convention of the reconstruction target. Source scenes are
// normalized to this convention once, at the scene root.
const (
	UpAxisUnknown = iota
	UpAxisY
	UpAxisZ
)

type UpAxis int

var targetUpAxis UpAxis = UpAxisZ

func GetTargetUpAxis() UpAxis {
	return targetUpAxis
}

func SetTargetUpAxis(a UpAxis) {
	if a == UpAxisUnknown {
		a = UpAxisZ
	}
	targetUpAxis = a
}

// Unit scale override. 0 means "use the scene metadata".
var unitScaleOverride float32

func GetUnitScaleOverride() float32 {
	return unitScaleOverride
}

func SetUnitScaleOverride(scale float32) {
	unitScaleOverride = scale
}
