package checkpoint

// Observer consumes the checkpoint protocol of a run. All calls happen on
// the fixture's goroutine; the fixture does not continue until they return.
type Observer interface {
	RunStarted(info RunInfo)
	CheckpointReached(snap *Snapshot)
	RunFinished(info RunInfo)
}

// NopObserver ignores everything. Embed it to implement only part of Observer.
type NopObserver struct{}

func (NopObserver) RunStarted(RunInfo)          {}
func (NopObserver) CheckpointReached(*Snapshot) {}
func (NopObserver) RunFinished(RunInfo)         {}

type tee []Observer

// Tee delivers every call to each observer in order.
func Tee(observers ...Observer) Observer {
	var t tee
	for _, o := range observers {
		if o != nil {
			t = append(t, o)
		}
	}
	return t
}

func (t tee) RunStarted(info RunInfo) {
	for _, o := range t {
		o.RunStarted(info)
	}
}

func (t tee) CheckpointReached(snap *Snapshot) {
	for _, o := range t {
		o.CheckpointReached(snap)
	}
}

func (t tee) RunFinished(info RunInfo) {
	for _, o := range t {
		o.RunFinished(info)
	}
}

var installedObserver Observer

// Install sets the observer used by runs created without one.
func Install(o Observer) {
	installedObserver = o
}

// Installed returns the observer set by Install, or nil.
func Installed() Observer {
	return installedObserver
}
