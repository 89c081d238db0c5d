package powsolver

import "runtime"

// hardwareParallelism mirrors std::thread::hardware_concurrency() in
// the original source: the number of logical CPUs usable for
// parallel work, or 1 if the runtime can't tell.
func hardwareParallelism() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
