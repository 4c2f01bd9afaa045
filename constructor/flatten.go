package constructor

import (
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/status"
	"github.com/mogaika/assetimport/utils"
)

// Flattened reconstruction bakes the whole node hierarchy into sections
// of a single component. The component takes the root node's transform;
// every vertex is baked with its node's transform composed relative to
// the root. Positions get the full transform, normals and tangents only
// the rotation part.

func transformVertices(composed mgl32.Mat4, vertices []mgl32.Vec3) []mgl32.Vec3 {
	baked := make([]mgl32.Vec3, len(vertices))
	for i, v := range vertices {
		baked[i] = composed.Mul4x1(v.Vec4(1)).Vec3()
	}
	return baked
}

func transformNormals(composed mgl32.Mat4, normals []mgl32.Vec3) []mgl32.Vec3 {
	rotation := utils.RotationOnly(composed)
	baked := make([]mgl32.Vec3, len(normals))
	for i, n := range normals {
		baked[i] = rotation.Mul3x1(n)
	}
	return baked
}

func transformTangents(composed mgl32.Mat4, tangents []mgl32.Vec4) []mgl32.Vec4 {
	rotation := utils.RotationOnly(composed)
	baked := make([]mgl32.Vec4, len(tangents))
	for i, t := range tangents {
		dir := rotation.Mul3x1(t.Vec3())
		baked[i] = dir.Vec4(t.W()) // handedness is rotation invariant
	}
	return baked
}

func checkFlattenedInput(target *ProceduralMeshComponent, md meshdata.LoadedMeshData,
	instances []*MaterialInstance) {
	if target == nil {
		log.Panicf("[constructor] Flattened build needs a target component")
	}
	if md.IsEmpty() {
		log.Panicf("[constructor] Cannot create sections from empty mesh data")
	}
	for iNode, node := range md.NodeList {
		if iNode == 0 {
			if node.ParentNodeIndex != meshdata.NoParentNodeIndex {
				log.Panicf("[constructor] Root node %q has parent %d", node.Name, node.ParentNodeIndex)
			}
		} else if node.ParentNodeIndex < 0 || node.ParentNodeIndex >= iNode {
			log.Panicf("[constructor] Node %d %q parent %d does not precede it",
				iNode, node.Name, node.ParentNodeIndex)
		}
		for iSection, section := range node.Sections {
			if section.MaterialIndex == meshdata.NoMaterialIndex {
				continue
			}
			if section.MaterialIndex < 0 || section.MaterialIndex >= len(instances) {
				log.Panicf("[constructor] Node %q section %d references material %d out of %d",
					node.Name, iSection, section.MaterialIndex, len(instances))
			}
		}
	}
}

// CreateMeshSectionsOnComponent is the synchronous flattened build: one
// section on the target per source section, in node order.
func CreateMeshSectionsOnComponent(target *ProceduralMeshComponent, md meshdata.LoadedMeshData,
	baseMaterial *BaseMaterial) {

	instances := GenerateMaterialInstances(md.MaterialList, baseMaterial)
	checkFlattenedInput(target, md, instances)

	target.SetRelativeTransform(md.NodeList[0].RelativeTransform)

	composed := make([]mgl32.Mat4, len(md.NodeList))
	composed[0] = mgl32.Ident4()

	iSection := 0
	for iNode, node := range md.NodeList {
		if iNode > 0 {
			composed[iNode] = composed[node.ParentNodeIndex].Mul4(node.RelativeTransform)
		}

		for _, section := range node.Sections {
			target.CreateMeshSection(iSection,
				transformVertices(composed[iNode], section.Vertices),
				section.Triangles,
				transformNormals(composed[iNode], section.Normals),
				section.UV0, section.VertexColors0,
				transformTangents(composed[iNode], section.Tangents), true)
			if section.MaterialIndex != meshdata.NoMaterialIndex {
				target.SetMaterial(iSection, instances[section.MaterialIndex])
			}
			iSection++
		}
	}
}

// LatentAction tracks one asynchronous flattened build. Completion is
// observable three ways: polling IsRunning, selecting on Done, or
// blocking in Wait. The completion callback fires exactly once, from the
// builder goroutine.
type LatentAction struct {
	done        chan struct{}
	once        sync.Once
	onCompleted func()
}

func newLatentAction(onCompleted func()) *LatentAction {
	return &LatentAction{
		done:        make(chan struct{}),
		onCompleted: onCompleted,
	}
}

func (a *LatentAction) IsRunning() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

func (a *LatentAction) Done() <-chan struct{} { return a.done }

func (a *LatentAction) Wait() { <-a.done }

func (a *LatentAction) complete() {
	a.once.Do(func() {
		close(a.done)
		if a.onCompleted != nil {
			a.onCompleted()
		}
	})
}

type transformFuture struct {
	ready    chan struct{}
	composed mgl32.Mat4
}

type sectionBuild struct {
	source   meshdata.LoadedMeshSectionData
	vertices []mgl32.Vec3
	normals  []mgl32.Vec3
	tangents []mgl32.Vec4
}

// CreateMeshSectionsOnComponentAsync runs the flattened build as a task
// graph: one transform future per node, three channel workers per
// section fanned out off the node future, and a single builder goroutine
// that owns the target and the section counter. Section order follows
// worker completion, not node order. There is no cancellation.
func CreateMeshSectionsOnComponentAsync(target *ProceduralMeshComponent, md meshdata.LoadedMeshData,
	baseMaterial *BaseMaterial, onCompleted func()) *LatentAction {

	instances := GenerateMaterialInstances(md.MaterialList, baseMaterial)
	checkFlattenedInput(target, md, instances)

	target.SetRelativeTransform(md.NodeList[0].RelativeTransform)

	action := newLatentAction(onCompleted)

	futures := make([]*transformFuture, len(md.NodeList))
	for iNode := range futures {
		futures[iNode] = &transformFuture{ready: make(chan struct{})}
	}
	futures[0].composed = mgl32.Ident4()
	close(futures[0].ready)

	for iNode := 1; iNode < len(md.NodeList); iNode++ {
		go func(iNode int) {
			f := futures[iNode]
			parent := futures[md.NodeList[iNode].ParentNodeIndex]
			<-parent.ready
			f.composed = parent.composed.Mul4(md.NodeList[iNode].RelativeTransform)
			close(f.ready)
		}(iNode)
	}

	totalSections := 0
	for _, node := range md.NodeList {
		totalSections += len(node.Sections)
	}

	builds := make(chan *sectionBuild, totalSections)
	for iNode := range md.NodeList {
		for _, section := range md.NodeList[iNode].Sections {
			go func(iNode int, section meshdata.LoadedMeshSectionData) {
				f := futures[iNode]
				<-f.ready

				build := &sectionBuild{source: section}
				var wg sync.WaitGroup
				wg.Add(3)
				go func() {
					defer wg.Done()
					build.vertices = transformVertices(f.composed, section.Vertices)
				}()
				go func() {
					defer wg.Done()
					build.normals = transformNormals(f.composed, section.Normals)
				}()
				go func() {
					defer wg.Done()
					build.tangents = transformTangents(f.composed, section.Tangents)
				}()
				wg.Wait()
				builds <- build
			}(iNode, section)
		}
	}

	go func() {
		for iSection := 0; iSection < totalSections; iSection++ {
			build := <-builds
			target.CreateMeshSection(iSection,
				build.vertices, build.source.Triangles,
				build.normals, build.source.UV0,
				build.source.VertexColors0, build.tangents, true)
			if build.source.MaterialIndex != meshdata.NoMaterialIndex {
				target.SetMaterial(iSection, instances[build.source.MaterialIndex])
			}
			status.Progress(status.StageConstruct, float32(iSection+1)/float32(totalSections),
				"Created section %d of %d", iSection+1, totalSections)
		}
		action.complete()
	}()

	return action
}
