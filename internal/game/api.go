package game

import "context"

// Surface is the drawing surface handle given to Render.
type Surface interface {
	Size() (width, height int)
}

// Image is a decoded image resource.
type Image interface {
	Size() (width, height int)
}

// ImageLoader fetches and decodes an image. Implementations run off the
// sandbox goroutine; the sandbox delivers the result back to the module.
type ImageLoader func(ctx context.Context, url string) (Image, error)

// API is the capability object passed once to Init. It is owned by the
// sandbox and does not outlive a reboot.
type API struct {
	// Surface is the canvas the module renders into.
	Surface Surface

	// LoadImage fetches an image asynchronously.
	LoadImage ImageLoader

	// PlayBeep triggers a short audible tone.
	PlayBeep func()

	// SetButtons hints which virtual buttons the game uses. May be nil.
	SetButtons func(names []string)
}
