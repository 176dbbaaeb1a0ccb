// Package playback describes the boundary to the media decode/playback engine.
// The engine itself lives outside this module; the preloader only opens,
// stops and discards handles through a Capability.
package playback

// Handle is an opaque reference to an opened media resource.
type Handle interface {
	Url() string
}

// Listener receives readiness notifications for a handle. Implementations must
// tolerate being called from any goroutine, and at most one of the two
// methods is expected to matter for a given handle.
type Listener interface {
	OnReady(h Handle)
	OnError(h Handle, reason error)
}

type Capability interface {
	// Open begins network and decode activity for url. Readiness is reported
	// asynchronously through l. An error here means the resource could not
	// even be opened.
	Open(url string, l Listener) (Handle, error)

	// Stop halts any further activity on the handle.
	Stop(h Handle)

	// Discard frees the decode and network resources behind the handle.
	Discard(h Handle)
}

type ListenerFuncs struct {
	Ready func(h Handle)
	Error func(h Handle, reason error)
}

func (l ListenerFuncs) OnReady(h Handle) {
	if l.Ready != nil {
		l.Ready(h)
	}
}

func (l ListenerFuncs) OnError(h Handle, reason error) {
	if l.Error != nil {
		l.Error(h, reason)
	}
}
