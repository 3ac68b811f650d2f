package widget

// Container is the host-page mount point for one widget instance. The SDK
// drives it through the embed lifecycle: a transient loading placeholder
// while the frame is being set up, the frame itself once created, an error
// surface when embedding fails, and a final clear on destroy.
type Container interface {
	ShowLoading()
	ShowFrame(url string)
	ShowError(message string)
	Clear()
}

// ContainerResolver resolves selector strings passed as Options.Container
// into concrete containers.
type ContainerResolver interface {
	Resolve(selector string) (Container, error)
}

// NopContainer returns a Container that renders nothing. Headless hosts use
// it when only the protocol side of an instance matters.
func NopContainer() Container { return nopContainer{} }

type nopContainer struct{}

func (nopContainer) ShowLoading()     {}
func (nopContainer) ShowFrame(string) {}
func (nopContainer) ShowError(string) {}
func (nopContainer) Clear()           {}
