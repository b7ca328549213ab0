package di

// VidpipeNames defines the component keys cmd/vidpipe registers into a
// Container, so callers resolve by named constant rather than a magic
// string repeated at every Register/Resolve call site.
type VidpipeNames struct {
	Config     string
	Registry   string
	Supervisor string
}

// Vidpipe is the concrete key set cmd/vidpipe wires its container with.
var Vidpipe = VidpipeNames{
	Config:     "vidpipe.config",
	Registry:   "vidpipe.registry",
	Supervisor: "vidpipe.supervisor",
}
