package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"omniselect-ocr/src/apperr"
	"omniselect-ocr/src/screenshot"
	"omniselect-ocr/src/ui"
)

var (
	shadeColor     = color.NRGBA{R: 0, G: 0, B: 0, A: 77} // ~0.3 alpha
	selectionColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

// BackdropFunc returns a still image of the display the overlay covers and
// that display's bounds in screen pixels.
type BackdropFunc func() (image.Image, image.Rectangle, error)

// Window is the fyne implementation of Opener. It covers the primary display
// with a dimmed still of the screen, so the overlay looks semi-transparent.
type Window struct {
	app      fyne.App
	backdrop BackdropFunc
	// create builds the borderless host window; nil uses the desktop
	// driver's splash window.
	create func() (fyne.Window, error)
	open   bool
}

// NewWindow returns an Opener backed by app. A nil backdrop captures the
// primary display.
func NewWindow(app fyne.App, backdrop BackdropFunc) *Window {
	if backdrop == nil {
		backdrop = func() (image.Image, image.Rectangle, error) {
			return screenshot.CapturePrimary()
		}
	}
	return &Window{app: app, backdrop: backdrop}
}

func (o *Window) Open(tok ui.Token, done func(Result)) (err error) {
	if !tok.Valid() {
		return apperr.Overlay(nil, "capture overlay must be opened on the UI thread")
	}
	if o.open {
		return apperr.Overlay(nil, "capture overlay is already open")
	}
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Overlay(fmt.Errorf("%v", r), "failed to open capture overlay")
		}
	}()

	create := o.create
	if create == nil {
		create = o.splashWindow
	}
	w, err := create()
	if err != nil {
		return err
	}

	still, bounds, err := o.backdrop()
	if err != nil {
		w.Close()
		return apperr.Overlay(err, "failed to prepare capture overlay")
	}

	sess := NewSession()
	finished := false
	finish := func(res Result) {
		if finished {
			return
		}
		finished = true
		o.open = false
		w.Close()
		done(res)
	}

	toScreen := func(p fyne.Position) image.Point {
		scale := w.Canvas().Scale()
		return image.Point{
			X: bounds.Min.X + int(math.Round(float64(p.X*scale))),
			Y: bounds.Min.Y + int(math.Round(float64(p.Y*scale))),
		}
	}

	surface := newSurface(sess, still, toScreen, func(region screenshot.Region) {
		log.Printf("Overlay: region selected %s", region)
		finish(Result{Region: region})
	})

	w.SetPadded(false)
	w.SetContent(surface)
	w.SetFullScreen(true)
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape && sess.Cancel() {
			log.Printf("Overlay: cancelled")
			finish(Result{Cancelled: true})
		}
	})
	w.SetOnClosed(func() {
		if !finished && sess.Cancel() {
			log.Printf("Overlay: window closed before selection")
			finished = true
			o.open = false
			done(Result{Cancelled: true})
		}
	})

	o.open = true
	sess.Arm()
	w.Show()
	w.RequestFocus()
	log.Printf("Overlay: armed on display %v", bounds)
	return nil
}

func (o *Window) splashWindow() (fyne.Window, error) {
	if o.app == nil {
		return nil, apperr.Overlay(nil, "no application to host the capture overlay")
	}
	drv, ok := o.app.Driver().(desktop.Driver)
	if !ok {
		return nil, apperr.Overlay(nil, "platform has no desktop windowing")
	}
	return drv.CreateSplashWindow(), nil
}

// dragEndGrace is how long DragEnd waits for the matching MouseUp before it
// resolves at the last dragged point.
const dragEndGrace = 100 * time.Millisecond

// surface is the full-window widget that receives the drag gesture.
type surface struct {
	widget.BaseWidget

	sess      *Session
	still     image.Image
	toScreen  func(fyne.Position) image.Point
	onResolve func(screenshot.Region)
	// schedule runs f on the UI thread after d.
	schedule func(d time.Duration, f func())

	anchorPos, currentPos fyne.Position
	lastPoint             image.Point
}

func newSurface(sess *Session, still image.Image, toScreen func(fyne.Position) image.Point, onResolve func(screenshot.Region)) *surface {
	s := &surface{sess: sess, still: still, toScreen: toScreen, onResolve: onResolve,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, func() { fyne.Do(f) })
		},
	}
	s.ExtendBaseWidget(s)
	return s
}

func (s *surface) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p := s.toScreen(ev.Position)
	if s.sess.Press(p) {
		s.anchorPos, s.currentPos, s.lastPoint = ev.Position, ev.Position, p
		s.Refresh()
	}
}

func (s *surface) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s.release(s.toScreen(ev.Position))
}

func (s *surface) MouseIn(*desktop.MouseEvent) {}
func (s *surface) MouseOut()                   {}

func (s *surface) MouseMoved(ev *desktop.MouseEvent) {
	s.move(ev.Position)
}

// Dragged and DragEnd cover drivers that route held-button motion to
// draggables instead of hover events. The release point comes from MouseUp
// when one follows; DragEnd only falls back to the last dragged point.
func (s *surface) Dragged(ev *fyne.DragEvent) {
	s.move(ev.Position)
}

func (s *surface) DragEnd() {
	if s.sess.State() != Dragging {
		return
	}
	s.schedule(dragEndGrace, func() {
		s.release(s.lastPoint)
	})
}

func (s *surface) move(pos fyne.Position) {
	p := s.toScreen(pos)
	if s.sess.Move(p) {
		s.currentPos, s.lastPoint = pos, p
		s.Refresh()
	}
}

func (s *surface) release(p image.Point) {
	if region, ok := s.sess.Release(p); ok {
		s.onResolve(region)
	}
}

func (s *surface) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

func (s *surface) CreateRenderer() fyne.WidgetRenderer {
	var bg *canvas.Image
	if s.still != nil {
		bg = canvas.NewImageFromImage(s.still)
	} else {
		bg = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	}
	bg.FillMode = canvas.ImageFillStretch

	shade := canvas.NewRectangle(shadeColor)
	sel := canvas.NewRectangle(color.Transparent)
	sel.StrokeColor = selectionColor
	sel.StrokeWidth = 2
	sel.Hide()

	return &surfaceRenderer{s: s, bg: bg, shade: shade, sel: sel,
		objects: []fyne.CanvasObject{bg, shade, sel}}
}

type surfaceRenderer struct {
	s       *surface
	bg      *canvas.Image
	shade   *canvas.Rectangle
	sel     *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *surfaceRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.shade.Resize(size)

	if r.s.sess.State() != Dragging {
		r.sel.Hide()
		return
	}
	a, c := r.s.anchorPos, r.s.currentPos
	r.sel.Move(fyne.NewPos(min(a.X, c.X), min(a.Y, c.Y)))
	r.sel.Resize(fyne.NewSize(abs32(c.X-a.X), abs32(c.Y-a.Y)))
	r.sel.Show()
}

func (r *surfaceRenderer) MinSize() fyne.Size { return fyne.NewSize(1, 1) }

func (r *surfaceRenderer) Refresh() {
	r.Layout(r.s.Size())
	canvas.Refresh(r.sel)
}

func (r *surfaceRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *surfaceRenderer) Destroy()                     {}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
