package motionplan

// shortcut runs randomized shortcut smoothing on an exact path: pick two
// non-adjacent waypoints, and if the straight segment between them is valid,
// splice out everything in between. Every splice strictly shortens the path
// under the state space metric, so the length objective only ever improves.
func (p *Planner) shortcut(path [][]float64, opts *PlanOptions) [][]float64 {
	for iter := 0; iter < opts.SmoothIterations && len(path) > 2; iter++ {
		i := p.random.Intn(len(path) - 2)
		j := i + 2 + p.random.Intn(len(path)-i-2)
		if !p.CheckMotion(path[i], path[j], opts.Resolution) {
			continue
		}
		spliced := make([][]float64, 0, len(path)-(j-i-1))
		spliced = append(spliced, path[:i+1]...)
		spliced = append(spliced, path[j:]...)
		path = spliced
	}
	return path
}
