package projectile

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/hackademics/runjumpski/pkg/concurrent"
	"github.com/hackademics/runjumpski/pkg/sequence"
)

// TrajectoryPoint is one sample of a predicted flight path.
type TrajectoryPoint struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Time     float64
}

// Trajectory is a sampled flight path plus summary statistics.
type Trajectory struct {
	Points        []TrajectoryPoint
	MaxHeight     float64
	TotalDistance float64
	FlightTime    float64
}

// acceleration is the shared gravity+drag model used by both the trajectory
// sampler and the manual projectile integration path, so predicted and
// simulated flight stay consistent.
func acceleration(velocity mgl64.Vec3, cfg Config, gravity mgl64.Vec3) mgl64.Vec3 {
	var a mgl64.Vec3
	if cfg.AffectedByGravity {
		a = gravity
	}
	speed := velocity.Len()
	if cfg.DragCoefficient > 0 && speed > 1e-9 {
		dragMag := 0.5 * cfg.DragCoefficient * speed * speed / cfg.Mass
		a = a.Sub(velocity.Mul(dragMag / speed))
	}
	return a
}

// CalculateTrajectory samples the ballistic path from start along direction
// using fixed-timestep explicit Euler integration. Sampling stops at maxTime,
// maxPoints, or when the path crosses the ground plane (y=0); the crossing
// point is linearly interpolated so the final sample sits on the plane
// instead of overshooting below it.
func CalculateTrajectory(start, direction mgl64.Vec3, cfg Config, gravity mgl64.Vec3, maxTime, timeStep float64, maxPoints int) Trajectory {
	out := Trajectory{MaxHeight: start.Y()}
	if timeStep <= 0 || maxPoints < 1 {
		return out
	}
	dirLen := direction.Len()
	if dirLen < 1e-12 {
		out.Points = append(out.Points, TrajectoryPoint{Position: start})
		return out
	}

	pos := start
	vel := direction.Mul(cfg.InitialVelocity / dirLen)
	out.Points = append(out.Points, TrajectoryPoint{Position: pos, Velocity: vel})

	for t := timeStep; t <= maxTime && len(out.Points) < maxPoints; t += timeStep {
		a := acceleration(vel, cfg, gravity)
		vel = vel.Add(a.Mul(timeStep))
		next := pos.Add(vel.Mul(timeStep))

		if next.Y() < 0 && pos.Y() >= 0 {
			// Interpolate the exact ground crossing.
			frac := pos.Y() / (pos.Y() - next.Y())
			crossing := pos.Add(next.Sub(pos).Mul(frac))
			crossing[1] = 0
			crossTime := t - timeStep + timeStep*frac
			out.TotalDistance += crossing.Sub(pos).Len()
			out.Points = append(out.Points, TrajectoryPoint{Position: crossing, Velocity: vel, Time: crossTime})
			out.FlightTime = crossTime
			return out
		}

		out.TotalDistance += next.Sub(pos).Len()
		pos = next
		if pos.Y() > out.MaxHeight {
			out.MaxHeight = pos.Y()
		}
		out.Points = append(out.Points, TrajectoryPoint{Position: pos, Velocity: vel, Time: t})
		out.FlightTime = t
	}
	return out
}

// CalculateAimAngles solves the ballistic firing-angle equation for hitting
// target from start at the configured muzzle velocity. It returns zero, one,
// or two launch angles in radians above the horizontal (low arc first). An
// empty result means the target is out of range at this muzzle velocity —
// a valid answer, not an error.
//
// Drag is ignored by the closed-form solution; callers needing drag-accurate
// aim should refine with CalculateTrajectory.
func CalculateAimAngles(start, target mgl64.Vec3, cfg Config, gravity mgl64.Vec3) []float64 {
	delta := target.Sub(start)
	dy := delta.Y()
	dx := math.Hypot(delta.X(), delta.Z())
	v := cfg.InitialVelocity

	if !cfg.AffectedByGravity {
		// Straight-line flight: a single direct angle always reaches.
		return []float64{math.Atan2(dy, dx)}
	}

	g := -gravity.Y()
	if g <= 0 || dx < 1e-9 {
		return nil
	}

	// tan(theta) = (v^2 ± sqrt(v^4 - g(g x^2 + 2 y v^2))) / (g x)
	disc := v*v*v*v - g*(g*dx*dx+2*dy*v*v)
	if disc < 0 {
		return nil
	}
	sqrtDisc := math.Sqrt(disc)
	low := math.Atan2(v*v-sqrtDisc, g*dx)
	if sqrtDisc < 1e-12 {
		return []float64{low}
	}
	high := math.Atan2(v*v+sqrtDisc, g*dx)
	return []float64{low, high}
}

// TrajectoryRequest is one entry of a batch prediction job.
type TrajectoryRequest struct {
	Start     mgl64.Vec3
	Direction mgl64.Vec3
	Config    Config
}

// CalculateTrajectoryBatch predicts many trajectories in parallel. This is an
// off-tick planning helper (AI aim evaluation, trajectory preview); the
// per-frame simulation never calls it.
func CalculateTrajectoryBatch(requests []TrajectoryRequest, gravity mgl64.Vec3, maxTime, timeStep float64, maxPoints, workers int) []Trajectory {
	return concurrent.ParallelMap(sequence.From(requests), workers, func(r TrajectoryRequest) Trajectory {
		return CalculateTrajectory(r.Start, r.Direction, r.Config, gravity, maxTime, timeStep, maxPoints)
	})
}
