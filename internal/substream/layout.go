package substream

// Layout assigns substream indices to a worker topology:
//
//	CPU worker i              -> i
//	GPU worker g (driver)     -> NumCPU + g
//	GPU worker g, thread t    -> NumCPU + NumGPU + g*ThreadsPerGPU + t
type Layout struct {
	NumCPU        int
	NumGPU        int
	ThreadsPerGPU int
}

// Count returns the total number of substreams the topology consumes.
func (l Layout) Count() int {
	return l.NumCPU + l.NumGPU*(l.ThreadsPerGPU+1)
}

// CPU returns the substream index of CPU worker i.
func (l Layout) CPU(i int) int {
	return i
}

// GPUDriver returns the substream index GPU worker g draws roots from.
func (l Layout) GPUDriver(g int) int {
	return l.NumCPU + g
}

// GPUThreads returns the first device-thread substream index of GPU worker g.
func (l Layout) GPUThreads(g int) int {
	return l.NumCPU + l.NumGPU + g*l.ThreadsPerGPU
}
