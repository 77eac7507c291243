package display

import (
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// QuitKey stops the session when pressed in the display window.
const QuitKey = 'q'

// Window shows annotated frames in a desktop window.
type Window struct {
	win *gocv.Window
}

func NewWindow(title string) *Window {
	log.Info().Str("title", title).Msg("Opening display window, press q to quit")
	return &Window{win: gocv.NewWindow(title)}
}

// Show renders mat and polls the keyboard. It reports true once the quit key is pressed
// or the window was closed.
func (w *Window) Show(mat gocv.Mat) bool {
	w.win.IMShow(mat)
	key := w.win.WaitKey(1)
	if key >= 0 && key&0xFF == QuitKey {
		return true
	}
	return !w.win.IsOpen()
}

func (w *Window) Close() error {
	return w.win.Close()
}
