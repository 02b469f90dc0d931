package app

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/gesture"
)

// Overlay is what gets drawn over a preview frame.
type Overlay struct {
	Hand     *detector.HandLandmarks
	Symbol   gesture.Symbol
	Vote     gesture.Vote
	Snapshot Snapshot
}

var (
	landmarkColor = color.RGBA{G: 255, A: 255}
	labelColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	pendingColor  = color.RGBA{R: 255, G: 200, A: 255}
)

// Preview fans annotated JPEG frames out to subscribers. Frames are only
// rendered while someone is subscribed.
type Preview struct {
	mu     sync.Mutex
	latest []byte
	subs   map[chan []byte]struct{}
}

// NewPreview returns a Preview with no subscribers.
func NewPreview() *Preview {
	return &Preview{subs: make(map[chan []byte]struct{})}
}

// Active reports whether any subscriber is attached.
func (p *Preview) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs) > 0
}

// Latest returns the most recent encoded frame, or nil.
func (p *Preview) Latest() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Subscribe returns a channel of encoded frames. Slow readers skip frames.
// The returned function unsubscribes and must be called.
func (p *Preview) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
		})
	}
}

// Publish hands an encoded frame to every subscriber.
func (p *Preview) Publish(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = jpeg
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- jpeg
	}
}

// Render draws overlay on a copy of frame, encodes it and publishes it.
func (p *Preview) Render(frame *gocv.Mat, overlay Overlay) {
	jpeg, err := renderJPEG(frame, overlay)
	if err != nil {
		return
	}
	p.Publish(jpeg)
}

func renderJPEG(frame *gocv.Mat, overlay Overlay) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	img := frame.Clone()
	defer img.Close()

	w, h := img.Cols(), img.Rows()
	if overlay.Hand != nil {
		for _, pt := range overlay.Hand.Points {
			center := image.Pt(int(pt.X*float64(w)), int(pt.Y*float64(h)))
			gocv.Circle(&img, center, 3, landmarkColor, -1)
		}
	}

	if overlay.Symbol != "" {
		label := fmt.Sprintf("%s  vote %s %.0f%%", overlay.Symbol, overlay.Vote.Symbol, overlay.Vote.Confidence*100)
		gocv.PutText(&img, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, labelColor, 2)
	}
	gocv.PutText(&img, overlay.Snapshot.Pending, image.Pt(10, h-40), gocv.FontHersheySimplex, 0.9, pendingColor, 2)
	gocv.PutText(&img, overlay.Snapshot.Confirmed, image.Pt(10, h-10), gocv.FontHersheySimplex, 0.7, labelColor, 1)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}
