package gaze

// kalman1D is a 2-state (position, velocity) constant-velocity Kalman
// filter over a scalar measurement. The gaze estimator runs one per screen
// axis. The update is deterministic given (measurement, prior state, dt).
type kalman1D struct {
	pos, vel         float64
	p00, p01, p1     float64 // symmetric covariance: [[p00 p01] [p01 p1]]
	processNoise     float64
	measurementNoise float64
	initialized      bool
}

func newKalman1D(processNoise, measurementNoise float64) *kalman1D {
	return &kalman1D{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
	}
}

// step runs one predict+update cycle with elapsed time dt (seconds) and
// measurement z, returning the filtered position.
func (k *kalman1D) step(z, dt float64) float64 {
	if !k.initialized {
		k.reinit(z)
		return k.pos
	}

	// Predict: x = F x, P = F P F' + Q with F = [[1 dt] [0 1]]
	k.pos += dt * k.vel
	p00 := k.p00 + dt*(2*k.p01+dt*k.p1) + k.processNoise
	p01 := k.p01 + dt*k.p1
	p1 := k.p1 + k.processNoise
	k.p00, k.p01, k.p1 = p00, p01, p1

	// Update with H = [1 0]
	s := k.p00 + k.measurementNoise
	k0 := k.p00 / s
	k1 := k.p01 / s
	resid := z - k.pos

	k.pos += k0 * resid
	k.vel += k1 * resid

	k.p00 = (1 - k0) * p00
	k.p01 = (1 - k0) * p01
	k.p1 = p1 - k1*p01

	return k.pos
}

// reinit seeds the filter state from a measurement with zero velocity.
func (k *kalman1D) reinit(z float64) {
	k.pos = z
	k.vel = 0
	k.p00, k.p01, k.p1 = 1, 0, 1
	k.initialized = true
}

// reset clears the filter so the next measurement re-seeds it.
func (k *kalman1D) reset() {
	k.initialized = false
	k.pos = 0
	k.vel = 0
}
