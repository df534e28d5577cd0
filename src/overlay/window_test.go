package overlay

import (
	"errors"
	"image"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniselect-ocr/src/apperr"
	"omniselect-ocr/src/screenshot"
	"omniselect-ocr/src/ui"
)

func mouse(x, y float32, button desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     button,
	}
}

// scaled maps widget positions to screen pixels for a 2x display at (0,0).
func scaled(p fyne.Position) image.Point {
	return image.Pt(int(p.X*2), int(p.Y*2))
}

func TestSurfaceDragGesture(t *testing.T) {
	test.NewTempApp(t)

	sess := NewSession()
	sess.Arm()
	var got []screenshot.Region
	s := newSurface(sess, nil, scaled, func(r screenshot.Region) { got = append(got, r) })
	s.Resize(fyne.NewSize(800, 600))

	s.MouseDown(mouse(200, 150, desktop.MouseButtonPrimary))
	s.MouseMoved(mouse(120, 90, desktop.MouseButtonPrimary))
	s.MouseMoved(mouse(50, 50, desktop.MouseButtonPrimary))
	s.MouseUp(mouse(50, 50, desktop.MouseButtonPrimary))
	// a trailing DragEnd from the driver must not resolve twice
	s.DragEnd()

	require.Len(t, got, 1)
	assert.Equal(t, screenshot.Region{X1: 100, Y1: 100, X2: 400, Y2: 300}, got[0])
}

func TestSurfaceIgnoresSecondaryButton(t *testing.T) {
	test.NewTempApp(t)

	sess := NewSession()
	sess.Arm()
	resolved := false
	s := newSurface(sess, nil, scaled, func(screenshot.Region) { resolved = true })

	s.MouseDown(mouse(10, 10, desktop.MouseButtonSecondary))
	assert.Equal(t, Armed, sess.State())
	s.MouseUp(mouse(20, 20, desktop.MouseButtonSecondary))
	assert.False(t, resolved)
}

// deferred collects scheduled callbacks so a test decides when they run.
type deferred struct{ fns []func() }

func (d *deferred) schedule(_ time.Duration, f func()) { d.fns = append(d.fns, f) }

func (d *deferred) run() {
	for _, f := range d.fns {
		f()
	}
	d.fns = nil
}

func TestSurfaceDragEndFallsBackToLastPoint(t *testing.T) {
	test.NewTempApp(t)

	sess := NewSession()
	sess.Arm()
	var got []screenshot.Region
	s := newSurface(sess, nil, scaled, func(r screenshot.Region) { got = append(got, r) })
	later := &deferred{}
	s.schedule = later.schedule

	s.MouseDown(mouse(10, 10, desktop.MouseButtonPrimary))
	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 40)}})
	s.DragEnd()
	assert.Empty(t, got, "DragEnd waits for a MouseUp")

	later.run()
	require.Len(t, got, 1)
	assert.Equal(t, screenshot.Region{X1: 20, Y1: 20, X2: 60, Y2: 80}, got[0])
	assert.Equal(t, desktop.CrosshairCursor, s.Cursor())
}

func TestSurfaceMouseUpAfterDragEndUsesReleasePoint(t *testing.T) {
	test.NewTempApp(t)

	sess := NewSession()
	sess.Arm()
	var got []screenshot.Region
	s := newSurface(sess, nil, scaled, func(r screenshot.Region) { got = append(got, r) })
	later := &deferred{}
	s.schedule = later.schedule

	s.MouseDown(mouse(10, 10, desktop.MouseButtonPrimary))
	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 40)}})
	s.DragEnd()
	s.MouseUp(mouse(35, 45, desktop.MouseButtonPrimary))
	later.run()

	require.Len(t, got, 1)
	assert.Equal(t, screenshot.Region{X1: 20, Y1: 20, X2: 70, Y2: 90}, got[0])
}

// openTestWindow opens o on a test window and returns it with the results
// reported through done.
func openTestWindow(t *testing.T, o *Window) (fyne.Window, *[]Result) {
	t.Helper()
	var win fyne.Window
	o.create = func() (fyne.Window, error) {
		win = test.NewTempWindow(t, widget.NewLabel(""))
		return win, nil
	}
	results := &[]Result{}
	ui.Inline{}.Do(func(tok ui.Token) {
		require.NoError(t, o.Open(tok, func(r Result) { *results = append(*results, r) }))
	})
	require.NotNil(t, win)
	return win, results
}

func stillBackdrop() (image.Image, image.Rectangle, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 6)), image.Rect(0, 0, 800, 600), nil
}

func pressEscape(w fyne.Window) {
	w.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyEscape})
}

func TestWindowEscapeCancelsOnce(t *testing.T) {
	test.NewTempApp(t)

	t.Run("armed", func(t *testing.T) {
		o := NewWindow(nil, stillBackdrop)
		w, results := openTestWindow(t, o)
		assert.True(t, o.open)

		pressEscape(w)
		pressEscape(w)
		require.Len(t, *results, 1)
		assert.True(t, (*results)[0].Cancelled)
		assert.False(t, o.open)
	})

	t.Run("dragging", func(t *testing.T) {
		o := NewWindow(nil, stillBackdrop)
		w, results := openTestWindow(t, o)
		s, ok := w.Content().(*surface)
		require.True(t, ok)

		s.MouseDown(mouse(10, 10, desktop.MouseButtonPrimary))
		s.MouseMoved(mouse(50, 50, desktop.MouseButtonPrimary))
		pressEscape(w)
		s.MouseUp(mouse(50, 50, desktop.MouseButtonPrimary))

		require.Len(t, *results, 1)
		assert.Equal(t, Result{Cancelled: true}, (*results)[0])
		assert.False(t, o.open)
	})
}

func TestWindowCloseBeforeSelectionCancels(t *testing.T) {
	test.NewTempApp(t)

	o := NewWindow(nil, stillBackdrop)
	w, results := openTestWindow(t, o)
	w.Close()

	require.Len(t, *results, 1)
	assert.True(t, (*results)[0].Cancelled)
	assert.False(t, o.open)
}

func TestWindowSelectionReportsOnceAndReopens(t *testing.T) {
	test.NewTempApp(t)

	o := NewWindow(nil, stillBackdrop)
	w, results := openTestWindow(t, o)
	s := w.Content().(*surface)

	s.MouseDown(mouse(100, 100, desktop.MouseButtonPrimary))
	s.MouseMoved(mouse(300, 200, desktop.MouseButtonPrimary))
	// closing the window from finish must not report a second time
	s.MouseUp(mouse(300, 200, desktop.MouseButtonPrimary))
	w.Close()
	pressEscape(w)

	require.Len(t, *results, 1)
	assert.Equal(t, Result{Region: screenshot.Region{X1: 100, Y1: 100, X2: 300, Y2: 200}}, (*results)[0])
	assert.False(t, o.open)

	_, again := openTestWindow(t, o)
	assert.True(t, o.open, "a finished overlay can be opened again")
	assert.Empty(t, *again)
}

func TestWindowBackdropFailureClosesWindow(t *testing.T) {
	test.NewTempApp(t)

	closed := false
	o := NewWindow(nil, func() (image.Image, image.Rectangle, error) {
		return nil, image.Rectangle{}, errors.New("screen recording not permitted")
	})
	o.create = func() (fyne.Window, error) {
		w := test.NewTempWindow(t, widget.NewLabel(""))
		w.SetOnClosed(func() { closed = true })
		return w, nil
	}
	ui.Inline{}.Do(func(tok ui.Token) {
		err := o.Open(tok, func(Result) { t.Error("done must not be called on error") })
		assert.Equal(t, apperr.KindOverlay, apperr.KindOf(err))
	})
	assert.True(t, closed)
	assert.False(t, o.open)
}

func TestOpenRequiresUIToken(t *testing.T) {
	w := NewWindow(nil, nil)
	called := false
	err := w.Open(ui.Token{}, func(Result) { called = true })
	require.Error(t, err)
	assert.Equal(t, apperr.KindOverlay, apperr.KindOf(err))
	assert.False(t, called)
}

func TestOpenWithoutAppIsOverlayError(t *testing.T) {
	w := NewWindow(nil, nil)
	ui.Inline{}.Do(func(tok ui.Token) {
		err := w.Open(tok, func(Result) { t.Error("done must not be called on error") })
		assert.Equal(t, apperr.KindOverlay, apperr.KindOf(err))
	})
	// a failed open leaves the opener usable
	assert.False(t, w.open)
}
