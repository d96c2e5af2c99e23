package motion

import (
	"math/rand"

	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
)

// happyDance builds the pose sequence for a little wiggle: pitch up on
// spread legs, rock side to side a few times, and settle back down. Every
// consecutive pair is bridged with small strides so the playback speed is
// bounded by the loop rate.
func happyDance(start hexapod.LegPositions) []hexapod.LegPositions {
	separated := start.Transform(math3d.Vector3{}, math3d.EulerAngles{Pitch: 0.08})
	leanLeft := separated.Transform(math3d.Vector3{}, math3d.EulerAngles{Roll: -0.02})
	leanRight := separated.Transform(math3d.Vector3{}, math3d.EulerAngles{Roll: 0.02})

	keyframes := []hexapod.LegPositions{start, leanLeft}
	for i := rand.Intn(3) + 3; i > 0; i-- {
		keyframes = append(keyframes, leanRight, leanLeft)
	}
	keyframes = append(keyframes, start)

	var poses []hexapod.LegPositions
	current := keyframes[0]
	for _, target := range keyframes[1:] {
		for {
			next, moved := bridgePose(current, target, maxMove)
			if !moved {
				break
			}
			current = next
			poses = append(poses, next)
		}
	}
	return poses
}

// bridgePose advances every foot toward target by at most maxStep of full
// 3-D travel. The rocking keyframes differ mostly in height, so the planar
// bound the walking mover uses would let feet jump.
func bridgePose(current hexapod.LegPositions, target hexapod.LegPositions, maxStep float64) (hexapod.LegPositions, bool) {
	next := current
	moved := false
	for _, leg := range hexapod.Legs {
		var m bool
		next[leg], m = moveVectorTowards(current[leg], target[leg], maxStep)
		moved = moved || m
	}
	return next, moved
}

// dance plays one queued happy dance from the current pose.
func (l *loop) dance() {
	log.Info("dancing")
	for _, pose := range happyDance(l.currentPose()) {
		l.writePose(pose)
		l.tick()
	}
}
